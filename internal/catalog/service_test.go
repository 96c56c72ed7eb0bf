package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/backend"
)

type countingSource struct {
	menuCalls int
	items     []backend.MenuItem
}

func (c *countingSource) MenuItems(ctx context.Context) ([]backend.MenuItem, error) {
	c.menuCalls++
	return c.items, nil
}

func (c *countingSource) Categories(ctx context.Context) ([]backend.Category, error) {
	return []backend.Category{{ID: "mains", Name: "Mains"}}, nil
}

func (c *countingSource) Tables(ctx context.Context) ([]backend.Table, error) {
	return []backend.Table{{ID: "t-1", Name: "Table 1", Seats: 4}}, nil
}

func newTestCatalog(t *testing.T) (*Service, *countingSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	src := &countingSource{items: []backend.MenuItem{
		{ID: "burger", Name: "Burger", Price: 25000, Available: true},
		{ID: "soup", Name: "Soup", Price: 30000, Available: false},
	}}
	return &Service{Source: src, Cache: NewCache(rdb, time.Minute)}, src, mr
}

func TestMenuItemsReadThrough(t *testing.T) {
	svc, src, _ := newTestCatalog(t)
	ctx := context.Background()

	first, err := svc.MenuItems(ctx)
	require.NoError(t, err)
	second, err := svc.MenuItems(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.menuCalls)
}

func TestMenuItemsCacheExpiry(t *testing.T) {
	svc, src, mr := newTestCatalog(t)
	ctx := context.Background()

	_, err := svc.MenuItems(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = svc.MenuItems(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, src.menuCalls)
}

func TestFindMenuItem(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	item, err := svc.FindMenuItem(ctx, "burger")
	require.NoError(t, err)
	assert.Equal(t, "Burger", item.Name)

	_, err = svc.FindMenuItem(ctx, "soup")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FindMenuItem(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesAndTables(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Mains", cats[0].Name)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 4, tables[0].Seats)
}
