package booking

import (
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// deliveryFee picks the in-city or out-of-city fee for physical orders. Digital
// goods and reservations never carry one.
func deliveryFee(blane *models.Blane, city *string) decimal.Decimal {
	if blane.IsDigital {
		return decimal.Zero
	}
	if blane.City != nil && city != nil && *blane.City == *city {
		return blane.DeliveryInCity
	}
	return blane.DeliveryOutCity
}

// quoteOrder computes (unit price x quantity + delivery fee) x rate, rounded to
// two decimals at the point of computation.
func quoteOrder(blane *models.Blane, quantity int, city *string, rate decimal.Decimal) decimal.Decimal {
	subtotal := blane.Price.Mul(decimal.NewFromInt(int64(quantity)))
	total := subtotal.Add(deliveryFee(blane, city)).Mul(rate)
	return total.Round(2)
}

// quoteReservation is the order quote without any delivery component.
func quoteReservation(blane *models.Blane, quantity int, rate decimal.Decimal) decimal.Decimal {
	subtotal := blane.Price.Mul(decimal.NewFromInt(int64(quantity)))
	return subtotal.Mul(rate).Round(2)
}

// partialAmount computes the upfront share for partiel payments when the blane
// configures one. Nil means the method behaves like a full online payment.
func partialAmount(blane *models.Blane, method enums.PaymentMethod, total decimal.Decimal) *decimal.Decimal {
	if method != enums.PaymentMethodPartial || blane.PartialPercent == nil || *blane.PartialPercent <= 0 {
		return nil
	}
	percent := decimal.NewFromInt(int64(*blane.PartialPercent))
	amount := total.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	return &amount
}
