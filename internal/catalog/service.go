package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/pos-gateway/internal/backend"
)

// ErrNotFound indicates the menu item is unknown or unavailable.
var ErrNotFound = errors.New("catalog: menu item not found")

const (
	keyMenuItems  = "catalog:menu-items"
	keyCategories = "catalog:categories"
	keyTables     = "catalog:tables"
)

// Source is the slice of the backend client the catalog needs.
type Source interface {
	MenuItems(ctx context.Context) ([]backend.MenuItem, error)
	Categories(ctx context.Context) ([]backend.Category, error)
	Tables(ctx context.Context) ([]backend.Table, error)
}

// Service serves catalog fixtures through a Redis read-through cache so a
// roomful of terminals does not hammer the backend for the same menu.
type Service struct {
	Source Source
	Cache  *Cache
}

// MenuItems returns the sellable catalog.
func (s *Service) MenuItems(ctx context.Context) ([]backend.MenuItem, error) {
	var items []backend.MenuItem
	if hit, err := s.Cache.GetJSON(ctx, keyMenuItems, &items); err == nil && hit {
		return items, nil
	}
	items, err := s.Source.MenuItems(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, keyMenuItems, items)
	return items, nil
}

// Categories returns the menu categories.
func (s *Service) Categories(ctx context.Context) ([]backend.Category, error) {
	var cats []backend.Category
	if hit, err := s.Cache.GetJSON(ctx, keyCategories, &cats); err == nil && hit {
		return cats, nil
	}
	cats, err := s.Source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, keyCategories, cats)
	return cats, nil
}

// Tables returns the dining table fixtures.
func (s *Service) Tables(ctx context.Context) ([]backend.Table, error) {
	var tables []backend.Table
	if hit, err := s.Cache.GetJSON(ctx, keyTables, &tables); err == nil && hit {
		return tables, nil
	}
	tables, err := s.Source.Tables(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, keyTables, tables)
	return tables, nil
}

// FindMenuItem resolves one menu item by id, for cart price capture.
func (s *Service) FindMenuItem(ctx context.Context, id string) (backend.MenuItem, error) {
	items, err := s.MenuItems(ctx)
	if err != nil {
		return backend.MenuItem{}, err
	}
	for _, item := range items {
		if item.ID == id {
			if !item.Available {
				return backend.MenuItem{}, fmt.Errorf("item %s unavailable: %w", id, ErrNotFound)
			}
			return item, nil
		}
	}
	return backend.MenuItem{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
}
