package http

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
)

// looseString accepts a JSON string or number, so product and user ids may
// arrive as 42 or "42".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(canonicalNumber(n))
	return nil
}

// canonicalNumber writes integral values without a fraction or exponent, so
// 42.0 and 4.2e1 both become "42". Plain integer literals pass through as
// sent to keep ids beyond float precision intact.
func canonicalNumber(n json.Number) string {
	raw := n.String()
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1e21 {
		return raw
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// looseNumber accepts a JSON number or numeric string. Anything else leaves
// it unset rather than failing the request.
type looseNumber struct {
	Value float64
	Set   bool
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	*n = looseNumber{}

	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}

	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = looseNumber{Value: v, Set: true}
	return nil
}

func (n looseNumber) ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// quantity truncates to a whole number; unset values become 0 and are
// bumped to 1 by the service.
func (n looseNumber) quantity() int {
	if !n.Set || n.Value > math.MaxInt32 {
		return 0
	}
	return int(n.Value)
}

type cartProductDTO struct {
	ProductID looseString `json:"productId"`
	Quantity  looseNumber `json:"quantity"`
	Price     looseNumber `json:"price"`
	Name      string      `json:"name"`
}

type AddToCartRequestDTO struct {
	UserID   looseString      `json:"userId"`
	Products []cartProductDTO `json:"products"`
}

func (r AddToCartRequestDTO) items() []domain.RequestedItem {
	items := make([]domain.RequestedItem, len(r.Products))
	for i, p := range r.Products {
		items[i] = domain.RequestedItem{
			ProductID: string(p.ProductID),
			Quantity:  p.Quantity.quantity(),
			Price:     p.Price.ptr(),
			Name:      p.Name,
		}
	}
	return items
}

type RemoveFromCartRequestDTO struct {
	UserID    looseString `json:"userId"`
	ProductID looseString `json:"productId"`
}

type PlaceOrderRequestDTO struct {
	UserID        looseString    `json:"userId"`
	PaymentMethod string         `json:"paymentMethod"`
	PaymentID     string         `json:"paymentId"`
	PaymentStatus string         `json:"paymentStatus"`
	CartItems     []orderItemDTO `json:"cartItems"`
}

type orderItemDTO struct {
	ProductID looseString `json:"productId"`
	Name      string      `json:"name"`
	Price     looseNumber `json:"price"`
	Quantity  looseNumber `json:"quantity"`
	ImageURL  string      `json:"imageUrl"`
}

func (r PlaceOrderRequestDTO) fallbackItems() []domain.CartItem {
	if len(r.CartItems) == 0 {
		return nil
	}
	items := make([]domain.CartItem, len(r.CartItems))
	for i, it := range r.CartItems {
		items[i] = domain.CartItem{
			ProductID: string(it.ProductID),
			Name:      it.Name,
			Price:     it.Price.Value,
			Quantity:  it.Quantity.quantity(),
			ImageURL:  it.ImageURL,
		}
	}
	return items
}

type OrderDTO struct {
	OrderCode     string            `json:"orderCode"`
	MongoID       string            `json:"mongoId,omitempty"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentID     string            `json:"paymentId,omitempty"`
	PaymentStatus string            `json:"paymentStatus"`
	Total         float64           `json:"total"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	CreatedAt     string            `json:"createdAt"`
	Items         []domain.CartItem `json:"items"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	items := o.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return OrderDTO{
		OrderCode:     o.OrderCode,
		MongoID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		PaymentID:     o.PaymentID,
		PaymentStatus: string(o.PaymentStatus),
		Total:         domain.RoundMoney(o.Total),
		Currency:      o.Currency,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Items:         items,
	}
}
