package pos

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/backend"
	"github.com/noah-isme/pos-gateway/internal/catalog"
	"github.com/noah-isme/pos-gateway/internal/kitchen"
	"github.com/noah-isme/pos-gateway/internal/money"
	"github.com/noah-isme/pos-gateway/internal/payment"
	"github.com/noah-isme/pos-gateway/internal/session"
)

type fakeSource struct {
	items []backend.MenuItem
}

func (f *fakeSource) MenuItems(ctx context.Context) ([]backend.MenuItem, error) {
	return f.items, nil
}

func (f *fakeSource) Categories(ctx context.Context) ([]backend.Category, error) {
	return nil, nil
}

func (f *fakeSource) Tables(ctx context.Context) ([]backend.Table, error) {
	return nil, nil
}

type fakePlacer struct {
	lastInput backend.CreateOrderInput
	order     backend.Order
	err       error
}

func (f *fakePlacer) CreateOrder(ctx context.Context, in backend.CreateOrderInput) (backend.Order, error) {
	f.lastInput = in
	if f.err != nil {
		return backend.Order{}, f.err
	}
	return f.order, nil
}

type fakeSubmitter struct {
	lastOrderID string
	lastPayload payment.Payload
	err         error
}

func (f *fakeSubmitter) SubmitPayment(ctx context.Context, orderID string, p payment.Payload) (payment.SubmitResult, error) {
	f.lastOrderID = orderID
	f.lastPayload = p
	if f.err != nil {
		return payment.SubmitResult{}, f.err
	}
	return payment.SubmitResult{OrderID: orderID, Status: "paid"}, nil
}

func newTestService(t *testing.T) (*Service, *fakePlacer, *fakeSubmitter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	placer := &fakePlacer{order: backend.Order{ID: "ord-1", Status: "pending", TotalAmount: 145000}}
	submitter := &fakeSubmitter{}
	svc := &Service{
		Sessions: &session.Store{R: rdb, TTL: time.Hour},
		Catalog: &catalog.Service{
			Source: &fakeSource{items: []backend.MenuItem{
				{ID: "burger", Name: "Burger", Price: 25000, Available: true},
				{ID: "fries", Name: "Fries", Price: 10000, Available: true},
				{ID: "soup", Name: "Soup", Price: 30000, Available: false},
			}},
			Cache: catalog.NewCache(rdb, time.Minute),
		},
		Orders:   placer,
		Payments: submitter,
		Kitchen:  kitchen.Enqueuer{},
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	}
	return svc, placer, submitter
}

func TestAddItemCapturesCatalogPrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	got, coerced, err := svc.AddItem(ctx, sess.ID, "burger", 2)
	require.NoError(t, err)
	assert.False(t, coerced)
	require.Len(t, got.Cart.Lines, 1)
	assert.Equal(t, money.Amount(25000), got.Cart.Lines[0].UnitPrice)
	assert.Equal(t, money.Amount(50000), got.Cart.Total())
}

func TestAddItemCoercesFractionalQty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	got, coerced, err := svc.AddItem(ctx, sess.ID, "fries", 2.7)
	require.NoError(t, err)
	assert.True(t, coerced)
	assert.Equal(t, 2, got.Cart.Lines[0].Qty)
}

func TestAddItemRejectsNonFiniteQty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	for _, raw := range []float64{math.NaN(), math.Inf(1)} {
		_, _, err := svc.AddItem(ctx, sess.ID, "fries", raw)
		require.ErrorIs(t, err, money.ErrInvalidAmount)
	}

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Cart.Empty())
}

func TestAddItemUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	_, _, err = svc.AddItem(ctx, sess.ID, "soup", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, _, err = svc.AddItem(ctx, sess.ID, "no-such-item", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAddItemSessionExpired(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.AddItem(context.Background(), "gone", "burger", 1)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.SubmitOrder(ctx, sess.ID, SubmitOrderInput{OrderType: "dine-in"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitOrderRecordsRefAndClearsCart(t *testing.T) {
	svc, placer, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, sess.ID, "burger", 2)
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, sess.ID, "fries", 1)
	require.NoError(t, err)

	order, err := svc.SubmitOrder(ctx, sess.ID, SubmitOrderInput{TableID: "t-4", OrderType: "dine-in"})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)

	require.Len(t, placer.lastInput.Items, 2)
	assert.Equal(t, "burger", placer.lastInput.Items[0].MenuItemID)
	assert.Equal(t, 2, placer.lastInput.Items[0].Quantity)

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Cart.Empty())
	require.NotNil(t, got.Order)
	assert.Equal(t, "ord-1", got.Order.ID)
	assert.Equal(t, money.Amount(145000), got.Order.Total)
}

func TestSubmitOrderUpstreamFailureKeepsCart(t *testing.T) {
	svc, placer, _ := newTestService(t)
	placer.err = backend.ErrUpstream
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, sess.ID, "burger", 1)
	require.NoError(t, err)

	_, err = svc.SubmitOrder(ctx, sess.ID, SubmitOrderInput{OrderType: "takeaway"})
	assert.ErrorIs(t, err, backend.ErrUpstream)

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, got.Cart.Empty())
	assert.Nil(t, got.Order)
}

func submitTestOrder(t *testing.T, svc *Service) session.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, sess.ID, "burger", 2)
	require.NoError(t, err)
	_, err = svc.SubmitOrder(ctx, sess.ID, SubmitOrderInput{OrderType: "dine-in"})
	require.NoError(t, err)
	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	return got
}

func TestOpenPaymentSeedsFromOrderRef(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := submitTestOrder(t, svc)

	got, err := svc.OpenPayment(context.Background(), sess.ID, "cash")
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	assert.Equal(t, "ord-1", got.Payment.OrderID)
	assert.Equal(t, money.Amount(145000), got.Payment.OrderTotal)
	assert.Equal(t, money.Amount(145000), got.Payment.Cash)
}

func TestOpenPaymentWithoutOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.OpenPayment(ctx, sess.ID, "cash")
	assert.ErrorIs(t, err, ErrNoOrder)
}

func TestPaymentEditsPersist(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "mixed")
	require.NoError(t, err)

	got, err := svc.SetDiscount(ctx, sess.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(5000), got.Payment.Discount)
	assert.Equal(t, money.Amount(70000), got.Payment.Cash)
	assert.Equal(t, money.Amount(70000), got.Payment.Card)

	got, err = svc.SetCash(ctx, sess.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(100000), got.Payment.Cash)
	assert.Equal(t, money.Amount(40000), got.Payment.Card)

	reloaded, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(100000), reloaded.Payment.Cash)
}

func TestSetDiscountRejectsNegative(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "cash")
	require.NoError(t, err)

	_, err = svc.SetDiscount(ctx, sess.ID, -10)
	assert.ErrorIs(t, err, payment.ErrInvalidDiscount)
}

func TestPaymentEditWithoutDialog(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := submitTestOrder(t, svc)

	_, err := svc.SetCash(context.Background(), sess.ID, 100)
	assert.ErrorIs(t, err, ErrNoPayment)
}

func TestSubmitPaymentSettlesSession(t *testing.T) {
	svc, _, submitter := newTestService(t)
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "cash")
	require.NoError(t, err)
	_, err = svc.SetCash(ctx, sess.ID, 1500)
	require.NoError(t, err)

	res, err := svc.SubmitPayment(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", res.Status)
	assert.Equal(t, "ord-1", submitter.lastOrderID)
	assert.Equal(t, "cash", submitter.lastPayload.PaymentMethod)
	require.NotNil(t, submitter.lastPayload.CashAmount)
	assert.Nil(t, submitter.lastPayload.CardAmount)

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Payment)
	assert.Nil(t, got.Order)
}

func TestSubmitPaymentInsufficientNeverReachesBackend(t *testing.T) {
	svc, _, submitter := newTestService(t)
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "cash")
	require.NoError(t, err)
	_, err = svc.SetCash(ctx, sess.ID, 1000)
	require.NoError(t, err)

	_, err = svc.SubmitPayment(ctx, sess.ID)
	assert.ErrorIs(t, err, payment.ErrInsufficientPayment)
	assert.Empty(t, submitter.lastOrderID)

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
}

func TestSubmitPaymentUpstreamFailureKeepsDialog(t *testing.T) {
	svc, _, submitter := newTestService(t)
	submitter.err = errors.New("boom")
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "card")
	require.NoError(t, err)

	_, err = svc.SubmitPayment(ctx, sess.ID)
	require.Error(t, err)

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	require.NotNil(t, got.Order)
}

func TestClosePaymentKeepsOrderRef(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := submitTestOrder(t, svc)
	ctx := context.Background()

	_, err := svc.OpenPayment(ctx, sess.ID, "cash")
	require.NoError(t, err)

	got, err := svc.ClosePayment(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Payment)
	require.NotNil(t, got.Order)
}
