package relay

import (
	"context"

	"oracle-consensus/internal/ledger"
)

// EventSource is where the relay reads the authoritative event log. Events
// are delivered at-least-once: the same range may be fetched again after a
// crash, so application must be idempotent.
type EventSource interface {
	// Head returns the newest sequence number, 0 when the log is empty.
	Head(ctx context.Context) (uint64, error)
	// Range returns events with from <= Seq <= to, clamped to the log.
	Range(ctx context.Context, from, to uint64) ([]ledger.Event, error)
}

// Submitter writes relay-originated transactions back to the ledger.
// *ledger.Ledger implements it directly. A chain-backed deployment wraps tx
// submission behind the same signatures; until one is wired the relay runs
// mirror-only against a chain source and leaves answer recording and
// finalization to the chain side.
type Submitter interface {
	RecordAnswer(caller ledger.Caller, questionID, text, storageHash string, proof ledger.Proof) error
	Finalize(caller ledger.Caller, questionID string) (ledger.FinalizeOutcome, error)
}

// LedgerSource adapts the in-process ledger to EventSource.
type LedgerSource struct {
	Ledger *ledger.Ledger
}

func (s LedgerSource) Head(ctx context.Context) (uint64, error) {
	return s.Ledger.Head(), nil
}

func (s LedgerSource) Range(ctx context.Context, from, to uint64) ([]ledger.Event, error) {
	return s.Ledger.Range(from, to), nil
}
