package enums

// ActorRole identifies who is calling an authenticated endpoint.
type ActorRole string

const (
	ActorRoleAdmin  ActorRole = "admin"
	ActorRoleVendor ActorRole = "vendor"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case ActorRoleAdmin, ActorRoleVendor:
		return true
	}
	return false
}

func (r ActorRole) String() string {
	return string(r)
}
