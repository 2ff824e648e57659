package quota

import (
	"context"
	"time"

	"ask_gateway/internal/entitlement"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

// Gate decides whether a metered request may proceed. Callers on an active
// plan bypass the ledger entirely.
type Gate struct {
	ledger Ledger
	now    func() time.Time
}

// NewGate creates a gate backed by the given ledger.
func NewGate(ledger Ledger) *Gate {
	return &Gate{
		ledger: ledger,
		now:    time.Now,
	}
}

// CheckAndConsume records one unit of usage for userID in the current week
// unless the weekly limit is already reached. Ledger failures propagate to
// the caller; the gate never fails open.
func (g *Gate) CheckAndConsume(ctx context.Context, userID string, ent entitlement.View, limit int) (Decision, error) {
	if ent.Active {
		return Decision{Allowed: true, Limit: limit}, nil
	}

	ws := WeekStart(g.now())
	used, allowed, err := g.ledger.ConsumeIfBelow(ctx, userID, ws, limit)
	if err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: allowed, Used: used, Limit: limit}, nil
}
