package settings

import (
	"context"

	"payboard/internal/core"
)

// RecordKey names the single persisted settings record.
const RecordKey = "payout_rates"

// Ports for settings persistence.
type (
	// Store reads and overwrites the payout rate record. Read returns
	// core.DefaultPayoutRates when the record is absent or cannot be parsed;
	// only infrastructure failures come back as errors.
	Store interface {
		Read(ctx context.Context) (core.PayoutRates, error)
		Write(ctx context.Context, rates core.PayoutRates) error
	}

	// Pinger is implemented by stores that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
