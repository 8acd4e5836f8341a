package notify

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	LoanCreated          EventType = "loan.created"
	LoanReturned         EventType = "loan.returned"
	ReservationQueued    EventType = "reservation.queued"
	ReservationFulfilled EventType = "reservation.fulfilled"
	ReservationCancelled EventType = "reservation.cancelled"
	FineAssessed         EventType = "fine.assessed"
	FinePaid             EventType = "fine.paid"
	FinePaymentRejected  EventType = "fine.payment_rejected"
)

// Event is a committed change a user may want to hear about.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	UserID        uint      `json:"userId"`
	ItemID        uint      `json:"itemId,omitempty"`
	LoanID        uint      `json:"loanId,omitempty"`
	ReservationID uint      `json:"reservationId,omitempty"`
	FineID        uint      `json:"fineId,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []EventType {
	events := r.Events()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
