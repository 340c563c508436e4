package booking

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusRejected:  {},
	StatusCompleted: {},
}

func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal is true for cancelled, rejected and completed; unknown values are terminal too.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// HoldsDates reports whether a booking in this status occupies its dates.
func (s Status) HoldsDates() bool {
	return s == StatusPending || s == StatusConfirmed
}

var ErrUnknownStatus = errors.New("booking: unknown status")

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentPaid:     {PaymentRefunded},
	PaymentFailed:   {PaymentPending, PaymentPaid},
	PaymentRefunded: {},
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Action names a lifecycle transition requested through UpdateBookingStatus.
type Action string

const (
	ActionConfirm           Action = "confirm"
	ActionReject            Action = "reject"
	ActionCancel            Action = "cancel"
	ActionComplete          Action = "complete"
	ActionMarkPaid          Action = "mark_paid"
	ActionMarkRefunded      Action = "mark_refunded"
	ActionMarkPaymentFailed Action = "mark_payment_failed"
	ActionRetryPayment      Action = "retry_payment"
)

var knownActions = map[Action]struct{}{
	ActionConfirm:           {},
	ActionReject:            {},
	ActionCancel:            {},
	ActionComplete:          {},
	ActionMarkPaid:          {},
	ActionMarkRefunded:      {},
	ActionMarkPaymentFailed: {},
	ActionRetryPayment:      {},
}

// ParseAction fails with ErrInvalidTransition for names the lifecycle does not know.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := knownActions[a]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, raw)
	}
	return a, nil
}
