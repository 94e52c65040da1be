package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
)

// Item is one line of the cart as the storefront submits it.
type Item struct {
	ID    catalog.ID  `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// Details is the customer-supplied part of an order. Any id or orderDate the
// client sends is ignored; both are stamped at persistence time.
type Details struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	Notes         string      `json:"notes,omitempty"`
	Items         []Item      `json:"items"`
	Total         json.Number `json:"total"`
	PaymentMethod string      `json:"paymentMethod"`
}

// Order is the record appended to the orders collection.
type Order struct {
	ID        int64     `json:"id"`
	OrderDate time.Time `json:"orderDate"`
	Details
}

// PlaceOrderRequest is the body of POST /api/place-order. A nil field means
// the client left it out (or sent null).
type PlaceOrderRequest struct {
	OrderDetails *Details     `json:"orderDetails"`
	SoldProducts []catalog.ID `json:"soldProducts"`
}
