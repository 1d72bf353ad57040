package notify

import (
	"context"
	"time"

	"leaddesk/pkg/domain"
)

// Kind names what happened. Transports use it as subject or routing key.
type Kind string

const (
	KindContactSubmitted     Kind = "contact.submitted"
	KindApplicationSubmitted Kind = "application.submitted"
)

// Event is one submission that the operator should hear about.
type Event struct {
	Kind       Kind              `json:"kind"`
	Submission domain.Submission `json:"submission"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent stamps an event for a stored submission.
func NewEvent(kind Kind, s domain.Submission) Event {
	return Event{Kind: kind, Submission: s, OccurredAt: time.Now().UTC()}
}

// Notifier delivers an event to the operator. Implementations must honor
// ctx cancellation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
