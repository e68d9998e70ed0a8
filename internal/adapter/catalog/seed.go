package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// record mirrors the JSON shape of an order in seed files and remote lists.
type record struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	StoreName string       `json:"storeName"`
	Category  string       `json:"category"`
	Date      time.Time    `json:"date"`
	Items     []itemRecord `json:"items"`
	Total     float64      `json:"total"`
}

type itemRecord struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func (r record) toModel() (model.Order, error) {
	status := model.OrderStatus(r.Status)
	if r.Status == "" {
		status = model.OrderStatusPending
	}
	if r.ID == "" {
		return model.Order{}, fmt.Errorf("order without id")
	}
	if !status.Valid() {
		return model.Order{}, fmt.Errorf("order %s: unknown status %q", r.ID, r.Status)
	}
	items := make([]model.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model.Order{
		ID:        r.ID,
		Status:    status,
		StoreName: r.StoreName,
		Category:  r.Category,
		PlacedAt:  r.Date,
		Items:     items,
		Total:     r.Total,
	}, nil
}

// Decode reads a JSON array of orders.
func Decode(r io.Reader) ([]model.Order, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]model.Order, 0, len(records))
	for _, rec := range records {
		o, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// LoadFile reads a seed file.
func LoadFile(path string) ([]model.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// DefaultSeed returns a small demo snapshot placed relative to now.
func DefaultSeed(now time.Time) []model.Order {
	return []model.Order{
		{
			ID:        "ord-1001",
			Status:    model.OrderStatusPending,
			StoreName: "Green Basket",
			Category:  "grocery",
			PlacedAt:  now.Add(-3 * time.Minute),
			Items:     []model.Item{{Name: "Apples", Quantity: 6, Price: 0.5}, {Name: "Oat milk", Quantity: 1, Price: 2.8}},
			Total:     5.8,
		},
		{
			ID:        "ord-1002",
			Status:    model.OrderStatusAccepted,
			StoreName: "Noodle Bar",
			Category:  "restaurant",
			PlacedAt:  now.Add(-25 * time.Minute),
			Items:     []model.Item{{Name: "Ramen", Quantity: 2, Price: 11}},
			Total:     22,
		},
		{
			ID:        "ord-1003",
			Status:    model.OrderStatusCompleted,
			StoreName: "Pharma Plus",
			Category:  "pharmacy",
			PlacedAt:  now.Add(-2 * time.Hour),
			Items:     []model.Item{{Name: "Vitamin C", Quantity: 1, Price: 7.4}},
			Total:     7.4,
		},
	}
}
