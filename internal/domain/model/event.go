package model

// Source identifies which actor produced a status change.
type Source string

const (
	SourceAdmin    Source = "admin"
	SourceVendor   Source = "vendor"
	SourceRider    Source = "rider"
	SourceCustomer Source = "customer"
	SourceSystem   Source = "system"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceAdmin, SourceVendor, SourceRider, SourceCustomer, SourceSystem:
		return true
	}
	return false
}

// CanFulfil reports whether s may accept, decline or complete orders.
func (s Source) CanFulfil() bool {
	switch s {
	case SourceAdmin, SourceVendor, SourceRider, SourceSystem:
		return true
	}
	return false
}

// CanCancel reports whether s may cancel orders.
func (s Source) CanCancel() bool {
	return s == SourceCustomer || s == SourceAdmin || s == SourceSystem
}

// StatusChangeEvent is the broadcast payload describing a status change.
// NewStatus is always the final value, never a delta.
type StatusChangeEvent struct {
	OrderID       string      `json:"orderId,omitempty"`
	NewStatus     OrderStatus `json:"newStatus,omitempty"`
	Timestamp     int64       `json:"timestamp"`
	ID            string      `json:"id"`
	Source        Source      `json:"source"`
	ForceUpdate   bool        `json:"forceUpdate"`
	Cancelled     *bool       `json:"cancelled,omitempty"`
	IsPenaltyFree *bool       `json:"isPenaltyFree,omitempty"`
}

// Targeted reports whether the event names a single order and a usable
// status. Anything else is treated as a request for a full resync.
func (e StatusChangeEvent) Targeted() bool {
	return e.OrderID != "" && e.NewStatus.Valid()
}
