package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/payment"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Store{R: client, TTL: time.Hour}, mr
}

func TestCreateGetRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.True(t, sess.Cart.Empty())

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "user-1", loaded.UserID)
}

func TestSavePersistsCartAndPayment(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	sess.Cart = sess.Cart.Add(cart.Line{ID: "m1", Name: "Nasi Goreng", UnitPrice: 45000}, 2)
	st := payment.New("order-9", sess.Cart.Total(), payment.MethodMixed)
	sess.Payment = &st
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Cart.Lines, 1)
	require.Equal(t, 2, loaded.Cart.Lines[0].Qty)
	require.NotNil(t, loaded.Payment)
	require.Equal(t, "order-9", loaded.Payment.OrderID)
	require.Equal(t, loaded.Payment.AmountDue(), loaded.Payment.Cash+loaded.Payment.Card)
}

func TestGetMissing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDiscardsState(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpires(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
