package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/api/middleware"
	"github.com/amineouhani/blanes-backend/api/responses"
	"github.com/amineouhani/blanes-backend/api/validators"
	"github.com/amineouhani/blanes-backend/internal/revenue"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// RevenueWeekly reports the vendor's current week, or the week containing ?at=.
func RevenueWeekly(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		at := time.Now()
		if raw := r.URL.Query().Get("at"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at must be a yyyy-mm-dd date"))
				return
			}
			at = parsed
		}

		overview, err := svc.WeeklyOverview(r.Context(), vendorID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// RevenueHistory reports week-by-week settlement totals, newest first.
func RevenueHistory(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 12, 1, 52)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), vendorID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"weeks": rows})
	}
}

// RevenueMonthly reports one calendar month's totals.
func RevenueMonthly(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		month, year, err := periodFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.MonthlyStats(r.Context(), vendorID, month, year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// ListInvoices returns the vendor's frozen monthly invoices, newest first.
func ListInvoices(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoices, err := svc.ListInvoices(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"invoices": invoices})
	}
}

// ExportLedger streams a month of the vendor's settlement ledger as a file
// download. ?format= picks the renderer, defaulting to csv.
func ExportLedger(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		month, year, err := periodFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := svc.ExportLedger(r.Context(), vendorID, month, year, r.URL.Query().Get("format"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(file.Content); err != nil {
			logg.Error(r.Context(), "writing ledger export", err)
		}
	}
}

// GenerateInvoices freezes the given month for every vendor with settlement
// lines. Admin only; reruns are no-ops.
func GenerateInvoices(svc revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		var payload generateInvoicesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.GenerateInvoicesForMonth(r.Context(), payload.Month, payload.Year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"created": created})
	}
}

type generateInvoicesRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2000"`
}

// vendorScope resolves which vendor's data the request targets. Vendor tokens
// are locked to their own id; admins pick one with ?vendor_id=.
func vendorScope(r *http.Request) (uuid.UUID, error) {
	if raw := middleware.VendorIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid vendor scope")
		}
		return id, nil
	}
	raw := r.URL.Query().Get("vendor_id")
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor id")
	}
	return id, nil
}

func periodFromQuery(r *http.Request) (int, int, error) {
	month, err := validators.ParseQueryInt(r, "month", 0, 1, 12)
	if err != nil {
		return 0, 0, err
	}
	year, err := validators.ParseQueryInt(r, "year", 0, 2000, 2200)
	if err != nil {
		return 0, 0, err
	}
	if month == 0 || year == 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "month and year are required")
	}
	return month, year, nil
}
