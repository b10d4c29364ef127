// Package billing holds the pricing math for short-stay rentals. Everything
// here is pure: rates come in as arguments and time comes in as timestamps,
// so the functions are trivially testable.
package billing

import (
	"math"
	"time"

	"motel/config"
	roomModel "motel/internal/domains/room/model"
)

// Tariff is the hourly price list. A room's own base_price, when set,
// overrides the type-based rate.
type Tariff struct {
	NormalHourly  float64
	JacuzziHourly float64
}

func NewTariff(cfg *config.Config) Tariff {
	return Tariff{
		NormalHourly:  cfg.Pricing.NormalHourlyRate,
		JacuzziHourly: cfg.Pricing.JacuzziHourlyRate,
	}
}

func (t Tariff) RateFor(room roomModel.Room) float64 {
	if room.BasePrice != nil && *room.BasePrice > 0 {
		return *room.BasePrice
	}

	if room.Type == roomModel.TypeJacuzzi {
		return t.JacuzziHourly
	}

	return t.NormalHourly
}

// Quote returns the upfront charge for the reserved block of hours.
func Quote(rate float64, reservedHours int) float64 {
	return rate * float64(reservedHours)
}

type Settlement struct {
	OvertimeHours  int
	OvertimeCharge float64
	FinalAmount    float64
}

// Settle computes the check-out total. Staying past the estimated exit is
// billed per started hour at the rate snapshotted on the rental; leaving
// early earns no refund.
func Settle(initialPayment, rate float64, estimatedExit, actualExit time.Time) Settlement {
	delta := actualExit.Sub(estimatedExit)
	if delta <= 0 {
		return Settlement{FinalAmount: initialPayment}
	}

	hours := int(math.Ceil(delta.Hours()))
	charge := float64(hours) * rate

	return Settlement{
		OvertimeHours:  hours,
		OvertimeCharge: charge,
		FinalAmount:    initialPayment + charge,
	}
}
