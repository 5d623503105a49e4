package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/api/responses"
	"github.com/amineouhani/blanes-backend/api/validators"
	"github.com/amineouhani/blanes-backend/internal/booking"
	"github.com/amineouhani/blanes-backend/internal/cancellation"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// CreateOrder admits an order against a blane. With allowExceed the caller may
// push past capacity ceilings; only vendor and admin routes mount that variant.
func CreateOrder(svc booking.Service, logg *logger.Logger, allowExceed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		var input booking.OrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ConfirmExceed = allowExceed && confirmRequested(r)

		result, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(result))
	}
}

// CreateReservation admits a reservation against a blane.
func CreateReservation(svc booking.Service, logg *logger.Logger, allowExceed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		var input booking.ReservationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ConfirmExceed = allowExceed && confirmRequested(r)

		result, err := svc.CreateReservation(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReservationResponse(result))
	}
}

// CancelOrder verifies the customer's cancellation link and releases capacity.
func CancelOrder(svc cancellation.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelHandler(logg, func(r *http.Request, payload cancelRequest) error {
		return svc.CancelOrder(r.Context(), chi.URLParam(r, "code"), payload.Token, payload.Timestamp)
	})
}

// CancelReservation verifies the customer's cancellation link and releases capacity.
func CancelReservation(svc cancellation.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelHandler(logg, func(r *http.Request, payload cancelRequest) error {
		return svc.CancelReservation(r.Context(), chi.URLParam(r, "code"), payload.Token, payload.Timestamp)
	})
}

func cancelHandler(logg *logger.Logger, cancel func(*http.Request, cancelRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := cancel(r, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func confirmRequested(r *http.Request) bool {
	return r.URL.Query().Get("confirm_exceed") == "true"
}

type cancelRequest struct {
	Token     string `json:"token" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

type cancellationResponse struct {
	Timestamp int64  `json:"timestamp"`
	Token     string `json:"token"`
}

type orderResponse struct {
	Code         string               `json:"code"`
	Status       string               `json:"status"`
	TotalPrice   decimal.Decimal      `json:"total_price"`
	PartialPrice *decimal.Decimal     `json:"partial_price,omitempty"`
	Cancellation cancellationResponse `json:"cancellation"`
	PaymentForm  map[string]string    `json:"payment_form,omitempty"`
}

type reservationResponse struct {
	Code         string               `json:"code"`
	Status       string               `json:"status"`
	Date         string               `json:"date"`
	Time         *string              `json:"time,omitempty"`
	EndDate      *string              `json:"end_date,omitempty"`
	TotalPrice   decimal.Decimal      `json:"total_price"`
	PartialPrice *decimal.Decimal     `json:"partial_price,omitempty"`
	Cancellation cancellationResponse `json:"cancellation"`
	PaymentForm  map[string]string    `json:"payment_form,omitempty"`
}

func newOrderResponse(result *booking.OrderResult) orderResponse {
	if result == nil || result.Order == nil {
		return orderResponse{}
	}
	return orderResponse{
		Code:         result.Order.Code,
		Status:       string(result.Order.Status),
		TotalPrice:   result.Order.TotalPrice,
		PartialPrice: result.Order.PartialPrice,
		Cancellation: cancellationResponse(result.Cancellation),
		PaymentForm:  result.PaymentForm,
	}
}

func newReservationResponse(result *booking.ReservationResult) reservationResponse {
	if result == nil || result.Reservation == nil {
		return reservationResponse{}
	}
	reservation := result.Reservation
	resp := reservationResponse{
		Code:         reservation.Code,
		Status:       string(reservation.Status),
		Date:         reservation.Date.Format("2006-01-02"),
		Time:         reservation.Time,
		TotalPrice:   reservation.TotalPrice,
		PartialPrice: reservation.PartialPrice,
		Cancellation: cancellationResponse(result.Cancellation),
		PaymentForm:  result.PaymentForm,
	}
	if reservation.EndDate != nil {
		end := reservation.EndDate.Format("2006-01-02")
		resp.EndDate = &end
	}
	return resp
}
