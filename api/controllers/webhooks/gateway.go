package webhooks

import (
	"context"
	"net/http"
	"net/url"

	"github.com/amineouhani/blanes-backend/internal/settlement"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// SettlementService consumes a verified gateway callback.
type SettlementService interface {
	HandleCallback(ctx context.Context, form url.Values) settlement.Result
}

// GatewayCallback receives the payment gateway's server-to-server POSTAUTH
// notification. The gateway only understands the literal body protocol, so
// every outcome is a 200 with a plain-text verdict; failures must not surface
// as HTTP errors or the gateway retries forever.
func GatewayCallback(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			writeVerdict(w, settlement.BodyFailure)
			return
		}
		if err := r.ParseForm(); err != nil {
			if logg != nil {
				logg.Error(ctx, "gateway callback form parse", err)
			}
			writeVerdict(w, settlement.BodyFailure)
			return
		}

		result := svc.HandleCallback(ctx, r.PostForm)
		writeVerdict(w, result.Body)
	}
}

func writeVerdict(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
