package model

import "time"

// NotificationLevel is the severity of user-facing feedback.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is best-effort feedback. It never confirms persistence.
type Notification struct {
	Level     NotificationLevel
	Title     string
	Message   string
	OrderID   string
	CreatedAt time.Time
}

// PenaltyCharge records a simulated late-cancellation fee.
type PenaltyCharge struct {
	OrderID   string
	Amount    float64
	ChargedAt time.Time
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	Role    Source
	Subject string
}
