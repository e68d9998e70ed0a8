package dto

import (
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// ViewResponse is the rendered list of one view.
type ViewResponse struct {
	View    string          `json:"view"`
	Version uint64          `json:"version"`
	Orders  []OrderResponse `json:"orders"`
}

// NotificationResponse is one feedback entry.
type NotificationResponse struct {
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewNotificationList converts notifications.
func NewNotificationList(notes []model.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, NotificationResponse{
			Level:     string(n.Level),
			Title:     n.Title,
			Message:   n.Message,
			OrderID:   n.OrderID,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
