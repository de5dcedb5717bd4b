// Package jobs holds the background tasks run by the worker process: the
// promotional sale sweep and the expired stock scan.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypePromoSweep removes promotional sales whose window has closed.
	TypePromoSweep = "promo:sweep"
	// TypeStockSweep pulls expired perishable stock off the shelf.
	TypeStockSweep = "stock:sweep"
)

type sweepPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewPromoSweepTask builds a promo sweep task anchored at asOf.
func NewPromoSweepTask(asOf time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(sweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePromoSweep, payload), nil
}

// NewStockSweepTask builds a stock sweep task anchored at asOf.
func NewStockSweepTask(asOf time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(sweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStockSweep, payload), nil
}
