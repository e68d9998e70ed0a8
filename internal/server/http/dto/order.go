package dto

import (
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// ItemPayload is a single order line.
type ItemPayload struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// PlaceOrderRequest describes a new order.
type PlaceOrderRequest struct {
	StoreName string        `json:"storeName"`
	Category  string        `json:"category"`
	Items     []ItemPayload `json:"items"`
	Total     float64       `json:"total"`
}

// Order converts the request into a domain order.
func (r PlaceOrderRequest) Order() model.Order {
	items := make([]model.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model.Order{StoreName: r.StoreName, Category: r.Category, Items: items, Total: r.Total}
}

// OrderResponse is the wire form of an order.
type OrderResponse struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	StoreName string        `json:"storeName"`
	Category  string        `json:"category,omitempty"`
	PlacedAt  time.Time     `json:"placedAt"`
	Items     []ItemPayload `json:"items"`
	Total     float64       `json:"total"`
}

// NewOrderResponse converts a domain order.
func NewOrderResponse(o model.Order) OrderResponse {
	items := make([]ItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPayload{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return OrderResponse{
		ID:        o.ID,
		Status:    string(o.Status),
		StoreName: o.StoreName,
		Category:  o.Category,
		PlacedAt:  o.PlacedAt,
		Items:     items,
		Total:     o.Total,
	}
}

// NewOrderList converts a slice of orders.
func NewOrderList(orders []model.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResponse(o))
	}
	return out
}
