// Package analytics serves the admin dashboard. Sales figures and recent
// orders are fixed mock data; the inventory table reflects the catalog.
package analytics

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/product"
)

// LowStockThreshold marks inventory rows that need attention.
const LowStockThreshold = 15

// DayPoint is one day of the weekly series.
type DayPoint struct {
	Day    string
	Sales  int
	Orders int
}

// Stat is a headline figure with its period-over-period trend.
type Stat struct {
	Label string
	Value string
	Trend string
}

// Up reports whether the trend is positive.
func (s Stat) Up() bool {
	return len(s.Trend) > 0 && s.Trend[0] == '+'
}

// OrderStatus is the fulfilment state of a recent order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderDelivered OrderStatus = "delivered"
)

// RecentOrder is a row of the recent orders table.
type RecentOrder struct {
	Customer string
	Initials string
	Product  string
	Amount   decimal.Decimal
	Status   OrderStatus
}

// InventoryRow is a row of the inventory table.
type InventoryRow struct {
	ProductID string
	Name      string
	Category  string
	Image     string
	Price     decimal.Decimal
	Stock     int
	LowStock  bool
}

// Dashboard is everything the admin overview renders.
type Dashboard struct {
	Weekly       []DayPoint
	Stats        []Stat
	RecentOrders []RecentOrder
	Inventory    []InventoryRow
}

var weekly = []DayPoint{
	{Day: "Mon", Sales: 4000, Orders: 24},
	{Day: "Tue", Sales: 3000, Orders: 13},
	{Day: "Wed", Sales: 2000, Orders: 98},
	{Day: "Thu", Sales: 2780, Orders: 39},
	{Day: "Fri", Sales: 1890, Orders: 48},
	{Day: "Sat", Sales: 2390, Orders: 38},
	{Day: "Sun", Sales: 3490, Orders: 43},
}

var stats = []Stat{
	{Label: "Total Revenue", Value: "$124,500", Trend: "+12.5%"},
	{Label: "Orders", Value: "1,420", Trend: "+8.2%"},
	{Label: "New Customers", Value: "450", Trend: "+24.1%"},
	{Label: "Avg Order Value", Value: "$87.50", Trend: "-2.4%"},
}

func recentOrders() []RecentOrder {
	orders := make([]RecentOrder, 5)
	for i := range orders {
		status := OrderPending
		if (i+1)%2 == 0 {
			status = OrderDelivered
		}
		orders[i] = RecentOrder{
			Customer: "John Doe",
			Initials: "JD",
			Product:  "Air Max Pro v2",
			Amount:   decimal.RequireFromString("189.99"),
			Status:   status,
		}
	}
	return orders
}

// Service builds dashboards.
type Service struct {
	products product.Repository
}

// NewService creates a Service reading inventory from products.
func NewService(products product.Repository) *Service {
	return &Service{products: products}
}

// Dashboard returns the admin overview.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	inventory := make([]InventoryRow, len(products))
	for i, p := range products {
		inventory[i] = InventoryRow{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Image:     p.Image,
			Price:     p.Price,
			Stock:     p.Stock,
			LowStock:  p.Stock < LowStockThreshold,
		}
	}

	return &Dashboard{
		Weekly:       append([]DayPoint(nil), weekly...),
		Stats:        append([]Stat(nil), stats...),
		RecentOrders: recentOrders(),
		Inventory:    inventory,
	}, nil
}
