package domain

import (
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusSuccessful PaymentStatus = "Successful"
	PaymentStatusFailed     PaymentStatus = "Failed"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusFailed    OrderStatus = "Failed"
)

// ParsePaymentStatus matches s case-insensitively against the known statuses.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return PaymentStatusPending, true
	case "successful":
		return PaymentStatusSuccessful, true
	case "failed":
		return PaymentStatusFailed, true
	default:
		return "", false
	}
}

// StatusFor derives the order status from the payment status.
func StatusFor(ps PaymentStatus) OrderStatus {
	switch ps {
	case PaymentStatusSuccessful:
		return OrderStatusDelivered
	case PaymentStatusFailed:
		return OrderStatusFailed
	default:
		return OrderStatusPending
	}
}

// Order is written once and never updated.
type Order struct {
	ID            string        `bson:"_id,omitempty" json:"id,omitempty"`
	OrderCode     string        `bson:"order_code" json:"orderCode"`
	UserID        string        `bson:"user_id" json:"userId"`
	Items         []CartItem    `bson:"items" json:"items"`
	Total         float64       `bson:"total" json:"total"`
	Currency      string        `bson:"currency" json:"currency"`
	PaymentMethod string        `bson:"payment_method" json:"paymentMethod"`
	PaymentID     string        `bson:"payment_id" json:"paymentId"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"paymentStatus"`
	Status        OrderStatus   `bson:"status" json:"status"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}
