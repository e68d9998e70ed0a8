package penalty

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Charger records simulated late-cancellation fees. No money moves.
type Charger struct {
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	charges []model.PenaltyCharge
}

// NewCharger constructs a Charger; m may be nil.
func NewCharger(c clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Charger {
	return &Charger{clock: c, logger: logger, metrics: m}
}

// Charge implements repository.PenaltyCharger.
func (c *Charger) Charge(ctx context.Context, orderID string, amount float64) (model.PenaltyCharge, error) {
	if amount <= 0 {
		return model.PenaltyCharge{}, fmt.Errorf("penalty %.2f: %w", amount, domainErrors.ErrInvalidAmount)
	}
	charge := model.PenaltyCharge{OrderID: orderID, Amount: amount, ChargedAt: c.clock.Now()}

	c.mu.Lock()
	c.charges = append(c.charges, charge)
	c.mu.Unlock()

	c.metrics.PenaltyCharged()
	c.logger.InfoContext(ctx, "cancellation penalty charged",
		slog.String("order", orderID),
		slog.Float64("amount", amount),
	)
	return charge, nil
}

// Charges returns every recorded charge in order.
func (c *Charger) Charges() []model.PenaltyCharge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.PenaltyCharge(nil), c.charges...)
}

// Total sums the fees charged for orderID.
func (c *Charger) Total(orderID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, ch := range c.charges {
		if ch.OrderID == orderID {
			sum += ch.Amount
		}
	}
	return sum
}
