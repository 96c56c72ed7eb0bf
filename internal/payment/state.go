package payment

import (
	"errors"
	"fmt"

	"github.com/noah-isme/pos-gateway/internal/money"
)

var (
	// ErrInvalidDiscount is returned when a discount below zero is supplied.
	ErrInvalidDiscount = errors.New("payment: invalid discount")
	// ErrInsufficientPayment is returned when the tendered total does not
	// cover the amount due at submit time.
	ErrInsufficientPayment = errors.New("payment: tendered amount below amount due")
	// ErrUnknownMethod is returned for a method outside cash/card/mixed.
	ErrUnknownMethod = errors.New("payment: unknown method")
)

// Method identifies how an order is settled.
type Method string

const (
	MethodCash  Method = "cash"
	MethodCard  Method = "card"
	MethodMixed Method = "mixed"
)

// ParseMethod validates a raw method string.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodCash, MethodCard, MethodMixed:
		return Method(raw), nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownMethod)
	}
}

// State is the payment dialog for one order. All transitions return a new
// value; derived quantities (amount due, tendered, change) are computed on
// demand and never stored.
type State struct {
	OrderID    string       `json:"orderId"`
	OrderTotal money.Amount `json:"orderTotal"`
	Discount   money.Amount `json:"discount"`
	Method     Method       `json:"method"`
	Cash       money.Amount `json:"cashAmount"`
	Card       money.Amount `json:"cardAmount"`
}

// New opens a payment dialog for an order and seeds the amount fields for the
// chosen method.
func New(orderID string, orderTotal money.Amount, m Method) State {
	s := State{OrderID: orderID, OrderTotal: orderTotal, Method: m}
	return s.applyMethod()
}

// AmountDue is the order total less the applied discount.
func (s State) AmountDue() money.Amount {
	return s.OrderTotal - s.Discount
}

// Tendered is the sum the customer has presented across both tender types.
func (s State) Tendered() money.Amount {
	return s.Cash + s.Card
}

// Change is never negative and always derived.
func (s State) Change() money.Amount {
	if c := s.Tendered() - s.AmountDue(); c > 0 {
		return c
	}
	return 0
}

// Valid reports whether the tendered total covers the amount due.
func (s State) Valid() bool {
	return s.Tendered() >= s.AmountDue()
}

// WithMethod switches the tender method and re-derives the amount fields.
func (s State) WithMethod(m Method) State {
	s.Method = m
	return s.applyMethod()
}

// WithDiscount applies a raw discount input. Values below zero are rejected;
// values above the order total are clamped. A discount edit always resets the
// cash/card split for the current method rather than scaling it.
func (s State) WithDiscount(raw float64) (State, error) {
	if raw < 0 {
		return s, fmt.Errorf("discount %.2f: %w", raw, ErrInvalidDiscount)
	}
	d, err := money.FromFloat(raw)
	if err != nil {
		return s, fmt.Errorf("discount: %w", err)
	}
	if d > s.OrderTotal {
		d = s.OrderTotal
	}
	s.Discount = d
	return s.applyMethod(), nil
}

// WithCash records a manual cash edit. Under the mixed method the card field
// auto-balances to whatever remains of the amount due.
func (s State) WithCash(raw float64) (State, error) {
	v, err := money.FromFloat(raw)
	if err != nil {
		return s, fmt.Errorf("cash amount: %w", err)
	}
	s.Cash = v
	if s.Method == MethodMixed {
		s.Card = s.balanceAgainst(v)
	} else {
		s.Card = 0
	}
	return s, nil
}

// WithCard records a manual card edit, symmetric to WithCash.
func (s State) WithCard(raw float64) (State, error) {
	v, err := money.FromFloat(raw)
	if err != nil {
		return s, fmt.Errorf("card amount: %w", err)
	}
	s.Card = v
	if s.Method == MethodMixed {
		s.Cash = s.balanceAgainst(v)
	} else {
		s.Cash = 0
	}
	return s, nil
}

func (s State) balanceAgainst(edited money.Amount) money.Amount {
	if rest := s.AmountDue() - edited; rest > 0 {
		return rest
	}
	return 0
}

func (s State) applyMethod() State {
	due := s.AmountDue()
	switch s.Method {
	case MethodCard:
		s.Card = due
		s.Cash = 0
	case MethodMixed:
		// Split at whole-currency-unit granularity so an odd due lands the
		// extra unit on the card side and the two fields sum exactly to due.
		s.Cash = (due / 200) * 100
		s.Card = due - s.Cash
	default:
		s.Method = MethodCash
		s.Cash = due
		s.Card = 0
	}
	return s
}

// Payload is the record sent to the backend payment endpoint. The unused
// tender field is omitted entirely for single-method settlements; discount is
// always present, zero included.
type Payload struct {
	PaymentMethod  string        `json:"paymentMethod"`
	DiscountAmount money.Amount  `json:"discountAmount"`
	CashAmount     *money.Amount `json:"cashAmount,omitempty"`
	CardAmount     *money.Amount `json:"cardAmount,omitempty"`
}

// BuildPayload validates the state and produces the outbound payment record.
// An invalid state never reaches the network.
func (s State) BuildPayload() (Payload, error) {
	if !s.Valid() {
		return Payload{}, fmt.Errorf("tendered %s below due %s: %w",
			s.Tendered(), s.AmountDue(), ErrInsufficientPayment)
	}
	p := Payload{
		PaymentMethod:  string(s.Method),
		DiscountAmount: s.Discount,
	}
	cash, card := s.Cash, s.Card
	switch s.Method {
	case MethodCash:
		p.CashAmount = &cash
	case MethodCard:
		p.CardAmount = &card
	case MethodMixed:
		p.CashAmount = &cash
		p.CardAmount = &card
	}
	return p, nil
}
