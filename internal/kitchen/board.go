package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Board holds the open tickets the kitchen display polls. Tickets live in a
// Redis hash keyed by order id and disappear when completed or when their TTL
// lapses.
type Board struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (b *Board) key() string {
	prefix := b.Prefix
	if prefix == "" {
		prefix = "pos:"
	}
	return prefix + "kitchen:board"
}

func (b *Board) ttl() time.Duration {
	if b.TTL <= 0 {
		return 24 * time.Hour
	}
	return b.TTL
}

// Post adds a ticket to the board.
func (b *Board) Post(ctx context.Context, t Ticket) error {
	if b == nil || b.R == nil {
		return errors.New("kitchen board not configured")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	pipe := b.R.TxPipeline()
	pipe.HSet(ctx, b.key(), t.OrderID, data)
	pipe.Expire(ctx, b.key(), b.ttl())
	_, err = pipe.Exec(ctx)
	return err
}

// Open lists the open tickets oldest first.
func (b *Board) Open(ctx context.Context) ([]Ticket, error) {
	if b == nil || b.R == nil {
		return nil, errors.New("kitchen board not configured")
	}
	raw, err := b.R.HGetAll(ctx, b.key()).Result()
	if err != nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(raw))
	for _, data := range raw {
		var t Ticket
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			continue
		}
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].PlacedAt.Before(tickets[j].PlacedAt)
	})
	return tickets, nil
}

// Complete removes a ticket once the kitchen finishes it.
func (b *Board) Complete(ctx context.Context, orderID string) error {
	if b == nil || b.R == nil {
		return errors.New("kitchen board not configured")
	}
	return b.R.HDel(ctx, b.key(), orderID).Err()
}
