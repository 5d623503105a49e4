package gateway

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
)

const (
	hashField     = "HASH"
	encodingField = "encoding"

	// ApprovedResponse and approvedProcCode must both match for a callback to
	// count as captured; either alone is not enough.
	ApprovedResponse = "Approved"
	approvedProcCode = "00"
)

// CallbackResult is the verified view of a gateway postback.
type CallbackResult struct {
	OID            string
	TransID        string
	Amount         string
	ProcReturnCode string
	Response       string
	AuthCode       string
	TrxDate        string
	HashValid      bool
	Params         map[string]string
}

// Captured reports whether the payment was actually taken: the signature must
// verify and the gateway must have approved the authorization.
func (c *CallbackResult) Captured() bool {
	return c.HashValid && c.ProcReturnCode == approvedProcCode && c.Response == ApprovedResponse
}

// Adapter builds outbound hosted-page requests and verifies inbound callbacks
// for the payment gateway.
type Adapter struct {
	cfg config.GatewayConfig
}

// NewAdapter builds a gateway adapter from merchant configuration.
func NewAdapter(cfg config.GatewayConfig) (*Adapter, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("gateway client id required")
	}
	if cfg.StoreKey == "" {
		return nil, fmt.Errorf("gateway store key required")
	}
	return &Adapter{cfg: cfg}, nil
}

// PaymentForm assembles the fields the frontend posts to the hosted payment
// page, signed with the store key. The oid carries the booking code so the
// callback can be routed back to it.
func (a *Adapter) PaymentForm(oid string, amount decimal.Decimal, customer *models.Customer) (map[string]string, error) {
	if oid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway oid required")
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway amount must be positive")
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"clientid":      a.cfg.ClientID,
		"storetype":     a.cfg.StoreType,
		"trantype":      a.cfg.TranType,
		"currency":      a.cfg.Currency,
		"lang":          a.cfg.Language,
		"okUrl":         a.cfg.OkURL,
		"failUrl":       a.cfg.FailURL,
		"callbackUrl":   a.cfg.CallbackURL,
		"amount":        amount.StringFixed(2),
		"oid":           oid,
		"rnd":           nonce,
		"hashAlgorithm": "ver3",
		// Asks the gateway to post the result to callbackUrl as well as
		// redirecting the shopper.
		"CallbackResponse": "true",
	}
	if customer != nil {
		params["email"] = customer.Email
		params["tel"] = customer.Phone
		params["BillToName"] = customer.Name
		params["BillToCompany"] = ""
		params["BillToStreet1"] = strOrEmpty(customer.Address)
		params["BillToCity"] = strOrEmpty(customer.City)
		params["BillToStateProv"] = ""
		params["BillToPostalCode"] = ""
	}

	params[hashField] = ComputeHash(params, a.cfg.StoreKey)
	params[encodingField] = "UTF-8"
	return params, nil
}

// VerifyCallback validates the signature on a gateway postback and extracts
// the settlement fields. Values arrive HTML entity encoded and occasionally
// with trailing newlines; both are undone before hashing. The HASH and
// encoding fields are excluded from the plaintext.
func (a *Adapter) VerifyCallback(form url.Values) *CallbackResult {
	params := make(map[string]string, len(form))
	for key := range form {
		value := html.UnescapeString(form.Get(key))
		params[key] = strings.TrimRight(value, "\r\n")
	}

	hashable := make(map[string]string, len(params))
	for key, value := range params {
		if strings.EqualFold(key, hashField) || strings.EqualFold(key, encodingField) {
			continue
		}
		hashable[key] = value
	}

	expected := ComputeHash(hashable, a.cfg.StoreKey)
	presented := params[hashField]
	valid := subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1

	return &CallbackResult{
		OID:            params["oid"],
		TransID:        params["TransId"],
		Amount:         params["amount"],
		ProcReturnCode: params["ProcReturnCode"],
		Response:       params["Response"],
		AuthCode:       params["AuthCode"],
		TrxDate:        params["EXTRA.TRXDATE"],
		HashValid:      valid,
		Params:         params,
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate gateway nonce")
	}
	return hex.EncodeToString(buf), nil
}
