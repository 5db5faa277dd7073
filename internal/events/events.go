// Package events carries lifecycle notifications out of the core. Delivery is
// best effort: publishers run after the storage transaction has committed.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	applog "campusswap/internal/log"
)

var logger = applog.Component("events")

type Kind string

const (
	TransactionCreated   Kind = "transaction.created"
	TransactionConfirmed Kind = "transaction.confirmed"
	TransactionCancelled Kind = "transaction.cancelled"
	TransactionCompleted Kind = "transaction.completed"
	TransactionLate      Kind = "transaction.late"
	TransactionResolved  Kind = "transaction.resolved"
	PenaltyPaid          Kind = "penalty.paid"
	PenaltyWaived        Kind = "penalty.waived"
	RatingSubmitted      Kind = "rating.submitted"
)

type Event struct {
	Kind          Kind   `json:"kind"`
	TransactionID string `json:"transaction_id,omitempty"`
	ItemID        string `json:"item_id,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
	// Recipients are the users a notifier should tell.
	Recipients []string       `json:"recipients,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

func decode(b []byte, e *Event) error { return json.Unmarshal(b, e) }

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit stamps the event and hands it to p. Failures are logged, never returned.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Error("publish.fail", err, map[string]any{"kind": e.Kind, "transaction_id": e.TransactionID})
	}
}

// LogPublisher writes each event as an audit line.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	logger.Audit(string(e.Kind), map[string]any{
		"transaction_id": e.TransactionID,
		"item_id":        e.ItemID,
		"actor_id":       e.ActorID,
		"recipients":     e.Recipients,
		"data":           e.Data,
	})
	return nil
}

// Multi fans out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}
