package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"motel/config"
	"motel/internal/domains/rental/billing"
	roomModel "motel/internal/domains/room/model"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestTariff_RateFor(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pricing.NormalHourlyRate = 100
	cfg.Pricing.JacuzziHourlyRate = 150

	tariff := billing.NewTariff(cfg)

	tests := []struct {
		name string
		room roomModel.Room
		want float64
	}{
		{
			name: "normal room uses the normal rate",
			room: roomModel.Room{Type: roomModel.TypeNormal},
			want: 100,
		},
		{
			name: "jacuzzi room uses the jacuzzi rate",
			room: roomModel.Room{Type: roomModel.TypeJacuzzi},
			want: 150,
		},
		{
			name: "base price overrides the type rate",
			room: roomModel.Room{Type: roomModel.TypeNormal, BasePrice: floatPtr(220)},
			want: 220,
		},
		{
			name: "zero base price falls back to the type rate",
			room: roomModel.Room{Type: roomModel.TypeJacuzzi, BasePrice: floatPtr(0)},
			want: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tariff.RateFor(tt.room), 0.001)
		})
	}
}

func TestQuote(t *testing.T) {
	assert.InDelta(t, 300.0, billing.Quote(150, 2), 0.001)
	assert.InDelta(t, 100.0, billing.Quote(100, 1), 0.001)
}

func TestSettle(t *testing.T) {
	estimated := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		initial    float64
		rate       float64
		actualExit time.Time
		want       billing.Settlement
	}{
		{
			name:       "exit on the estimated time pays nothing extra",
			initial:    300,
			rate:       150,
			actualExit: estimated,
			want:       billing.Settlement{FinalAmount: 300},
		},
		{
			name:       "early exit earns no refund",
			initial:    300,
			rate:       150,
			actualExit: estimated.Add(-30 * time.Minute),
			want:       billing.Settlement{FinalAmount: 300},
		},
		{
			name:       "45 minutes late bills one full hour",
			initial:    300,
			rate:       150,
			actualExit: estimated.Add(45 * time.Minute),
			want: billing.Settlement{
				OvertimeHours:  1,
				OvertimeCharge: 150,
				FinalAmount:    450,
			},
		},
		{
			name:       "one second late still bills one full hour",
			initial:    300,
			rate:       150,
			actualExit: estimated.Add(time.Second),
			want: billing.Settlement{
				OvertimeHours:  1,
				OvertimeCharge: 150,
				FinalAmount:    450,
			},
		},
		{
			name:       "two and a half hours late bills three hours",
			initial:    200,
			rate:       100,
			actualExit: estimated.Add(2*time.Hour + 30*time.Minute),
			want: billing.Settlement{
				OvertimeHours:  3,
				OvertimeCharge: 300,
				FinalAmount:    500,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.Settle(tt.initial, tt.rate, estimated, tt.actualExit)

			assert.Equal(t, tt.want.OvertimeHours, got.OvertimeHours)
			assert.InDelta(t, tt.want.OvertimeCharge, got.OvertimeCharge, 0.001)
			assert.InDelta(t, tt.want.FinalAmount, got.FinalAmount, 0.001)
		})
	}
}
