// Package domain holds the storefront's shared data model: orders, addresses,
// carts, and the monetary helpers the checkout path relies on.
package domain

import "time"

// Address mirrors the WooCommerce billing/shipping address shape.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrderLineItem is a single purchased product inside an order.
type OrderLineItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Total     string `json:"total"`
	SKU       string `json:"sku,omitempty"`
}

// Order is the subset of the WooCommerce order record the storefront works with.
// Total and Currency are authoritative: payment amounts are always derived from
// them, never from client input.
type Order struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	OrderKey      string          `json:"order_key"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Total         string          `json:"total"`
	CustomerID    int64           `json:"customer_id"`
	PaymentMethod string          `json:"payment_method"`
	Billing       Address         `json:"billing"`
	Shipping      Address         `json:"shipping"`
	LineItems     []OrderLineItem `json:"line_items"`
	CreatedAt     time.Time       `json:"date_created_gmt"`
}

// PaymentGateway is a WooCommerce payment gateway entry.
type PaymentGateway struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Order       int    `json:"order"`
}

// Customer is the subset of the WooCommerce customer record used for address
// management and the email existence check.
type Customer struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Billing  Address `json:"billing"`
	Shipping Address `json:"shipping"`
}

// ShippingRate is one quoted shipping method for a destination.
type ShippingRate struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	ZoneID      int64  `json:"zone_id"`
	Cost        string `json:"cost"`
	Currency    string `json:"currency"`
}

// Course is a purchasable training course exposed by the catalog.
type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	Level       string `json:"level,omitempty"`
}

// Certificate is a completion certificate issued for a course.
type Certificate struct {
	Code      string    `json:"code"`
	CourseID  int64     `json:"course_id"`
	Course    string    `json:"course"`
	HolderID  int64     `json:"holder_id"`
	Holder    string    `json:"holder"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Location is the resolved geolocation for a request.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}
