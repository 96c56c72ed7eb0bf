package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-gateway/internal/backend"
	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/catalog"
	"github.com/noah-isme/pos-gateway/internal/kitchen"
	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/payment"
	"github.com/noah-isme/pos-gateway/internal/session"
)

var (
	// ErrEmptyCart is returned when an order is submitted with no lines.
	ErrEmptyCart = errors.New("pos: cart is empty")
	// ErrNoOrder is returned when the payment dialog is opened before an
	// order has been submitted in this session.
	ErrNoOrder = errors.New("pos: no submitted order in session")
	// ErrNoPayment is returned when a payment edit arrives while no payment
	// dialog is open.
	ErrNoPayment = errors.New("pos: no open payment in session")
)

// OrderPlacer is the slice of the backend client order submission needs.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, in backend.CreateOrderInput) (backend.Order, error)
}

// Service orchestrates the terminal workflow: session lifecycle, cart edits
// with catalog price capture, order submission to the backend, and the
// payment dialog. All monetary math happens in the cart and payment packages;
// this layer only moves state between Redis and the upstream.
type Service struct {
	Sessions *session.Store
	Catalog  *catalog.Service
	Orders   OrderPlacer
	Payments payment.Submitter
	Kitchen  kitchen.Enqueuer
	Validate *validator.Validate
	Log      zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// counters are registered by main; tests that exercise the service alone may
// run without them.
func inc(c *prometheus.CounterVec, labels ...string) {
	if c != nil {
		c.WithLabelValues(labels...).Inc()
	}
}

// CreateSession opens an empty terminal session for the given user.
func (s *Service) CreateSession(ctx context.Context, userID string) (session.Session, error) {
	return s.Sessions.Create(ctx, userID)
}

// GetSession loads a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (session.Session, error) {
	return s.Sessions.Get(ctx, id)
}

// DeleteSession discards a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, id)
}

// AddItem resolves the menu item, captures its current price into the cart
// line and merges the quantity. The returned bool reports whether the raw
// quantity was coerced (fractional or non-positive input).
func (s *Service) AddItem(ctx context.Context, sessionID, itemID string, rawQty float64) (session.Session, bool, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, false, err
	}
	item, err := s.Catalog.FindMenuItem(ctx, itemID)
	if err != nil {
		return session.Session{}, false, err
	}
	qty, coerced, err := cart.CoerceQty(rawQty)
	if err != nil {
		return session.Session{}, false, err
	}
	sess.Cart = sess.Cart.Add(cart.Line{
		ID:        item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
	}, qty)
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, false, err
	}
	if coerced {
		s.Log.Warn().Str("sessionId", sessionID).Str("itemId", itemID).
			Float64("rawQty", rawQty).Int("qty", qty).Msg("quantity coerced")
	}
	return sess, coerced, nil
}

// UpdateItem sets the quantity of an existing line. Zero or negative removes
// the line, matching SetQty semantics.
func (s *Service) UpdateItem(ctx context.Context, sessionID, itemID string, rawQty float64) (session.Session, bool, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, false, err
	}
	qty, coerced, err := cart.CoerceQty(rawQty)
	if err != nil {
		return session.Session{}, false, err
	}
	sess.Cart = sess.Cart.SetQty(itemID, qty)
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, coerced, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	sess.Cart = sess.Cart.Remove(itemID)
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// ClearCart empties the cart without touching the rest of the session.
func (s *Service) ClearCart(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	sess.Cart = sess.Cart.Clear()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// SubmitOrderInput carries the order header fields taken at the terminal.
type SubmitOrderInput struct {
	TableID       string `json:"tableId" validate:"omitempty,max=64"`
	LocationID    string `json:"locationId" validate:"omitempty,max=64"`
	OrderType     string `json:"orderType" validate:"required,oneof=dine-in takeaway delivery"`
	CustomerName  string `json:"customerName" validate:"omitempty,max=128"`
	CustomerPhone string `json:"customerPhone" validate:"omitempty,max=32"`
}

// SubmitOrder forwards the cart to the backend, records the server-assigned
// order id and total on the session, clears the cart and fans a ticket out to
// the kitchen. The backend total is authoritative; the local cart total is
// only logged for drift detection.
func (s *Service) SubmitOrder(ctx context.Context, sessionID string, in SubmitOrderInput) (backend.Order, error) {
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return backend.Order{}, err
		}
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return backend.Order{}, err
	}
	if sess.Cart.Empty() {
		return backend.Order{}, ErrEmptyCart
	}

	items := make([]backend.OrderItemInput, 0, len(sess.Cart.Lines))
	ticketItems := make([]kitchen.TicketItem, 0, len(sess.Cart.Lines))
	for _, line := range sess.Cart.Lines {
		items = append(items, backend.OrderItemInput{MenuItemID: line.ID, Quantity: line.Qty})
		ticketItems = append(ticketItems, kitchen.TicketItem{Name: line.Name, Qty: line.Qty})
	}

	order, err := s.Orders.CreateOrder(ctx, backend.CreateOrderInput{
		TableID:       in.TableID,
		LocationID:    in.LocationID,
		OrderType:     in.OrderType,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Items:         items,
	})
	if err != nil {
		inc(obs.OrdersSubmittedTotal, "error")
		return backend.Order{}, fmt.Errorf("submit order: %w", err)
	}
	if localTotal := sess.Cart.Total(); localTotal != order.TotalAmount {
		s.Log.Warn().Str("orderId", order.ID).
			Stringer("localTotal", localTotal).Stringer("backendTotal", order.TotalAmount).
			Msg("cart total differs from backend total")
	}

	sess.Order = &session.OrderRef{ID: order.ID, Total: order.TotalAmount}
	sess.Cart = sess.Cart.Clear()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return backend.Order{}, err
	}
	inc(obs.OrdersSubmittedTotal, "ok")

	// The ticket is best effort: the order is already placed, so a queue
	// hiccup must not fail the request.
	ticket := kitchen.Ticket{
		OrderID:   order.ID,
		TableID:   in.TableID,
		OrderType: in.OrderType,
		Items:     ticketItems,
		PlacedAt:  s.now(),
	}
	if err := s.Kitchen.EnqueueTicket(ctx, ticket); err != nil {
		inc(obs.KitchenTicketsTotal, "enqueue_error")
		s.Log.Error().Err(err).Str("orderId", order.ID).Msg("kitchen ticket enqueue failed")
	} else {
		inc(obs.KitchenTicketsTotal, "enqueued")
	}
	return order, nil
}

// OpenPayment starts the payment dialog for the session's submitted order,
// seeded with the backend-assigned total.
func (s *Service) OpenPayment(ctx context.Context, sessionID, method string) (session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Order == nil {
		return session.Session{}, ErrNoOrder
	}
	m, err := payment.ParseMethod(method)
	if err != nil {
		return session.Session{}, err
	}
	st := payment.New(sess.Order.ID, sess.Order.Total, m)
	sess.Payment = &st
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (s *Service) editPayment(ctx context.Context, sessionID string, edit func(payment.State) (payment.State, error)) (session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Payment == nil {
		return session.Session{}, ErrNoPayment
	}
	next, err := edit(*sess.Payment)
	if err != nil {
		return session.Session{}, err
	}
	sess.Payment = &next
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// SetPaymentMethod switches the tender method and re-derives the split.
func (s *Service) SetPaymentMethod(ctx context.Context, sessionID, method string) (session.Session, error) {
	m, err := payment.ParseMethod(method)
	if err != nil {
		return session.Session{}, err
	}
	return s.editPayment(ctx, sessionID, func(st payment.State) (payment.State, error) {
		return st.WithMethod(m), nil
	})
}

// SetDiscount applies a discount, clamped to the order total.
func (s *Service) SetDiscount(ctx context.Context, sessionID string, raw float64) (session.Session, error) {
	return s.editPayment(ctx, sessionID, func(st payment.State) (payment.State, error) {
		return st.WithDiscount(raw)
	})
}

// SetCash edits the cash tender.
func (s *Service) SetCash(ctx context.Context, sessionID string, raw float64) (session.Session, error) {
	return s.editPayment(ctx, sessionID, func(st payment.State) (payment.State, error) {
		return st.WithCash(raw)
	})
}

// SetCard edits the card tender.
func (s *Service) SetCard(ctx context.Context, sessionID string, raw float64) (session.Session, error) {
	return s.editPayment(ctx, sessionID, func(st payment.State) (payment.State, error) {
		return st.WithCard(raw)
	})
}

// SubmitPayment validates the open payment, forwards it upstream and settles
// the session. An invalid payment is rejected locally and never leaves the
// gateway.
func (s *Service) SubmitPayment(ctx context.Context, sessionID string) (payment.SubmitResult, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return payment.SubmitResult{}, err
	}
	if sess.Payment == nil {
		return payment.SubmitResult{}, ErrNoPayment
	}
	st := *sess.Payment

	payload, err := st.BuildPayload()
	if err != nil {
		inc(obs.PaymentsRejectedTotal, "insufficient")
		return payment.SubmitResult{}, err
	}

	res, err := s.Payments.SubmitPayment(ctx, st.OrderID, payload)
	if err != nil {
		inc(obs.PaymentsSubmittedTotal, string(st.Method), "error")
		return payment.SubmitResult{}, fmt.Errorf("submit payment: %w", err)
	}
	inc(obs.PaymentsSubmittedTotal, string(st.Method), "ok")
	s.Log.Info().Str("orderId", st.OrderID).Str("method", string(st.Method)).
		Stringer("change", st.Change()).Msg("payment settled")

	sess.Payment = nil
	sess.Order = nil
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return payment.SubmitResult{}, err
	}
	return res, nil
}

// ClosePayment abandons the dialog without settling the order.
func (s *Service) ClosePayment(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	sess.Payment = nil
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}
