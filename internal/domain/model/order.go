package model

import (
	"slices"
	"time"
)

// OrderStatus describes the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusDeclined  OrderStatus = "declined"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusAccepted, OrderStatusDeclined, OrderStatusCancelled},
	OrderStatusAccepted: {OrderStatusCompleted, OrderStatusCancelled},
}

// Statuses lists every lifecycle state.
func Statuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusAccepted,
		OrderStatusCompleted,
		OrderStatusDeclined,
		OrderStatusCancelled,
	}
}

// Valid reports whether s is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	return slices.Contains(Statuses(), s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Precedes reports whether b lies later than a in the lifecycle, that is,
// b can be reached from a through one or more transitions.
func Precedes(a, b OrderStatus) bool {
	for _, next := range transitions[a] {
		if next == b || Precedes(next, b) {
			return true
		}
	}
	return false
}

// Item is a single order line.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Order is the synchronized entity. Everything except Status is display
// payload the sync layer never changes.
type Order struct {
	ID        string
	Status    OrderStatus
	StoreName string
	Category  string
	PlacedAt  time.Time
	Items     []Item
	Total     float64
}

// Clone returns a copy that shares no memory with o.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Equal compares orders by value.
func (o Order) Equal(other Order) bool {
	return o.ID == other.ID &&
		o.Status == other.Status &&
		o.StoreName == other.StoreName &&
		o.Category == other.Category &&
		o.PlacedAt.Equal(other.PlacedAt) &&
		o.Total == other.Total &&
		slices.Equal(o.Items, other.Items)
}

// StatusRecord is the durable status of an order together with the
// timestamp of the write that produced it. UpdatedAt is zero when unknown.
type StatusRecord struct {
	Status    OrderStatus
	UpdatedAt int64
}
