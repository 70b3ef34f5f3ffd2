package orders

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/example/ordershop/pkg/models"
)

const (
	defaultPaymentMethod = "cod"

	// maxQuantity bounds item quantities; larger values are treated as
	// invalid and fall back to 1.
	maxQuantity = math.MaxInt32
)

// Number decodes a JSON number or numeric string. Anything else, including
// null, leaves it unset instead of failing the whole request body.
type Number struct {
	Value float64
	Set   bool
}

func NewNumber(v float64) Number {
	return Number{Value: v, Set: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.Value, n.Set = f, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Text decodes a JSON string, number or bool as text. Numbers are rendered
// in their shortest decimal form. Objects, arrays and null leave it empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*t = Text(strconv.FormatBool(x))
	}
	return nil
}

type ItemInput struct {
	ProductID   Text   `json:"productId"`
	Name        Text   `json:"name"`
	Description Text   `json:"description"`
	Price       Number `json:"price"`
	Image       Text   `json:"image"`
	Quantity    Number `json:"quantity"`
}

// UnmarshalJSON accepts any JSON value. Anything but an object decodes to
// an empty item, which normalization fills with defaults.
func (i *ItemInput) UnmarshalJSON(b []byte) error {
	type plain ItemInput
	var v plain
	if isObject(b) {
		if err := json.Unmarshal(b, &v); err != nil {
			v = plain{}
		}
	}
	*i = ItemInput(v)
	return nil
}

// ItemList decodes a JSON array of items. Any other value decodes to an
// empty list so validation reports the missing items.
type ItemList []ItemInput

func (l *ItemList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	items := make(ItemList, len(raw))
	for n, r := range raw {
		if err := items[n].UnmarshalJSON(r); err != nil {
			return err
		}
	}
	*l = items
	return nil
}

type AddressInput struct {
	FullName Text `json:"fullName"`
	Address  Text `json:"address"`
	City     Text `json:"city"`
	State    Text `json:"state"`
	ZipCode  Text `json:"zipCode"`
	Phone    Text `json:"phone"`
}

// UnmarshalJSON decodes anything but an object to an empty address, which
// fails validation for its missing full name.
func (a *AddressInput) UnmarshalJSON(b []byte) error {
	type plain AddressInput
	var v plain
	if isObject(b) {
		if err := json.Unmarshal(b, &v); err != nil {
			v = plain{}
		}
	}
	*a = AddressInput(v)
	return nil
}

type PlaceOrderRequest struct {
	Items           ItemList      `json:"items"`
	TotalAmount     Number        `json:"totalAmount"`
	PaymentMethod   Text          `json:"paymentMethod"`
	DeliveryAddress *AddressInput `json:"deliveryAddress"`
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

// Validate checks the required parts of an order request and stops at the
// first failure. Item level fields are not validated here; Normalize fills
// them with defaults instead.
func Validate(req *PlaceOrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return InvalidInput("No items in order")
	}
	if !req.TotalAmount.Set || req.TotalAmount.Value <= 0 {
		return InvalidInput("Invalid total amount")
	}
	if req.DeliveryAddress == nil || strings.TrimSpace(string(req.DeliveryAddress.FullName)) == "" {
		return InvalidInput("Delivery address required")
	}
	return nil
}

// NormalizeItems is permissive: a missing or negative price becomes 0 and a
// missing, non-positive or out of range quantity becomes 1. Fractional
// quantities are truncated. The total is never recomputed from the items.
func NormalizeItems(in []ItemInput) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(in))
	for _, item := range in {
		price := 0.0
		if item.Price.Set && item.Price.Value > 0 {
			price = item.Price.Value
		}
		quantity := 1
		if q := item.Quantity.Value; item.Quantity.Set && q >= 1 && q <= maxQuantity {
			quantity = int(q)
		}
		out = append(out, models.OrderItem{
			ProductID:   orDefault(string(item.ProductID), "unknown"),
			Name:        orDefault(string(item.Name), "Unknown Product"),
			Description: orDefault(string(item.Description), "No description"),
			Price:       price,
			Image:       orDefault(string(item.Image), "/placeholder.png"),
			Quantity:    quantity,
		})
	}
	return out
}

func NormalizeAddress(in *AddressInput) models.DeliveryAddress {
	if in == nil {
		in = &AddressInput{}
	}
	return models.DeliveryAddress{
		FullName: orDefault(string(in.FullName), "Unknown"),
		Address:  orDefault(string(in.Address), "No address"),
		City:     orDefault(string(in.City), "Unknown"),
		State:    orDefault(string(in.State), "Unknown"),
		ZipCode:  orDefault(string(in.ZipCode), "00000"),
		Phone:    orDefault(string(in.Phone), "0000000000"),
	}
}

func NormalizeUserName(u *models.User) models.UserName {
	if u == nil {
		u = &models.User{}
	}
	return models.UserName{
		FirstName: orDefault(u.FirstName, "Unknown"),
		LastName:  orDefault(u.LastName, "User"),
		Email:     orDefault(u.Email, "unknown@example.com"),
	}
}

func NormalizePaymentMethod(method string) string {
	return orDefault(method, defaultPaymentMethod)
}

func orDefault(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}
