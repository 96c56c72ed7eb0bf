package backend

import "github.com/noah-isme/pos-gateway/internal/money"

// OrderItemInput is one cart line as the backend expects it: a menu item
// reference and a quantity. Pricing is re-derived server side.
type OrderItemInput struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

// CreateOrderInput is the order-creation payload.
type CreateOrderInput struct {
	TableID       string           `json:"tableId,omitempty"`
	LocationID    string           `json:"locationId,omitempty"`
	OrderType     string           `json:"orderType"`
	CustomerName  string           `json:"customerName,omitempty"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Items         []OrderItemInput `json:"items"`
}

// Order is the created order as returned by the backend.
type Order struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	TotalAmount money.Amount `json:"total_amount"`
}

// Table is a dining table fixture.
type Table struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	Occupied bool   `json:"occupied"`
}

// MenuItem is a sellable catalog entry.
type MenuItem struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Price      money.Amount `json:"price"`
	CategoryID string       `json:"categoryId"`
	Available  bool         `json:"available"`
}

// Category groups menu items.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
