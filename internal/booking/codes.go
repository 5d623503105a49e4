package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
)

const (
	// OrderCodePrefix and ReservationCodePrefix disambiguate the settlement
	// target when a gateway callback comes back with only the public code.
	OrderCodePrefix       = "ORDER"
	ReservationCodePrefix = "RES"

	defaultCodeMaxAttempts = 50
)

type codeExistsFunc func(ctx context.Context, code string) (bool, error)

// generateCode produces PREFIX-LLNNNNNN (two random uppercase letters, six
// random digits) and re-rolls on collision. Attempts are bounded: with ~2.6M
// combinations per prefix, hitting the bound means something is wrong with the
// existence check, not with luck.
func generateCode(ctx context.Context, prefix string, maxAttempts int, exists codeExistsFunc) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultCodeMaxAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomCode(prefix)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate booking code")
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check booking code uniqueness")
		}
		if !taken {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "exhausted booking code attempts")
}

func randomCode(prefix string) (string, error) {
	letters := make([]byte, 2)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(26))
		if err != nil {
			return "", err
		}
		letters[i] = byte('A' + n.Int64())
	}
	number, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s%06d", prefix, letters, number.Int64()), nil
}
