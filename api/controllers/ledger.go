package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/api/middleware"
	"github.com/amineouhani/blanes-backend/api/responses"
	"github.com/amineouhani/blanes-backend/api/validators"
	"github.com/amineouhani/blanes-backend/internal/ledger"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/pagination"
)

// ListVendorPayments pages through the settlement ledger, optionally filtered
// by vendor and transfer status.
func ListVendorPayments(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var filter ledger.ListFilter
		if raw := r.URL.Query().Get("vendor_id"); raw != "" {
			vendorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor id"))
				return
			}
			filter.VendorID = &vendorID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseTransferStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transfer status"))
				return
			}
			filter.Status = &status
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, nextCursor, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments := make([]vendorPaymentResponse, 0, len(rows))
		for _, row := range rows {
			payments = append(payments, newVendorPaymentResponse(row))
		}
		responses.WriteSuccess(w, vendorPaymentListResponse{Payments: payments, NextCursor: nextCursor})
	}
}

// MarkPaymentsProcessed records a wire transfer for a batch of pending lines.
func MarkPaymentsProcessed(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload markProcessedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transferDate := time.Now()
		if payload.TransferDate != nil {
			transferDate = *payload.TransferDate
		}

		moved, err := svc.MarkProcessed(r.Context(), payload.IDs, adminID, transferDate, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"processed": moved})
	}
}

// MarkPaymentsComplete confirms that processed payouts landed on the vendor
// side.
func MarkPaymentsComplete(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload markCompleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		moved, err := svc.MarkComplete(r.Context(), payload.IDs, adminID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"completed": moved})
	}
}

// RevertPayments moves processed or complete lines back to pending. A note
// explaining the correction is mandatory.
func RevertPayments(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload revertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		moved, err := svc.Revert(r.Context(), payload.IDs, adminID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"reverted": moved})
	}
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	return id, nil
}

type markProcessedRequest struct {
	IDs          []uuid.UUID `json:"ids" validate:"required,min=1"`
	TransferDate *time.Time  `json:"transfer_date"`
	Note         *string     `json:"note"`
}

type markCompleteRequest struct {
	IDs  []uuid.UUID `json:"ids" validate:"required,min=1"`
	Note *string     `json:"note"`
}

type revertRequest struct {
	IDs  []uuid.UUID `json:"ids" validate:"required,min=1"`
	Note string      `json:"note" validate:"required"`
}

type vendorPaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	VendorID          uuid.UUID       `json:"vendor_id"`
	OrderID           *uuid.UUID      `json:"order_id,omitempty"`
	ReservationID     *uuid.UUID      `json:"reservation_id,omitempty"`
	TotalAmountTTC    decimal.Decimal `json:"total_amount_ttc"`
	NetAmountTTC      decimal.Decimal `json:"net_amount_ttc"`
	CommissionInclVAT decimal.Decimal `json:"commission_incl_vat"`
	PaymentType       string          `json:"payment_type"`
	TransferStatus    string          `json:"transfer_status"`
	TransferDate      *time.Time      `json:"transfer_date,omitempty"`
	PaymentDate       time.Time       `json:"payment_date"`
	WeekStart         time.Time       `json:"week_start"`
	WeekEnd           time.Time       `json:"week_end"`
}

type vendorPaymentListResponse struct {
	Payments   []vendorPaymentResponse `json:"payments"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

func newVendorPaymentResponse(payment models.VendorPayment) vendorPaymentResponse {
	return vendorPaymentResponse{
		ID:                payment.ID,
		VendorID:          payment.VendorID,
		OrderID:           payment.OrderID,
		ReservationID:     payment.ReservationID,
		TotalAmountTTC:    payment.TotalAmountTTC,
		NetAmountTTC:      payment.NetAmountTTC,
		CommissionInclVAT: payment.CommissionInclVAT,
		PaymentType:       string(payment.PaymentType),
		TransferStatus:    string(payment.TransferStatus),
		TransferDate:      payment.TransferDate,
		PaymentDate:       payment.PaymentDate,
		WeekStart:         payment.WeekStart,
		WeekEnd:           payment.WeekEnd,
	}
}
