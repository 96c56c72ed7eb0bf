package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/money"
	"github.com/noah-isme/pos-gateway/internal/payment"
)

// ErrNotFound indicates the requested session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// OrderRef points at the most recently submitted order so the payment dialog
// can be seeded with the server-assigned total rather than a client value.
type OrderRef struct {
	ID    string       `json:"id"`
	Total money.Amount `json:"total"`
}

// Session is the state of one POS terminal interaction: the open cart plus,
// while the payment dialog is up, the payment state for a specific order.
// Everything here is discardable; the system of record lives upstream.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Cart      cart.Cart      `json:"cart"`
	Order     *OrderRef      `json:"order,omitempty"`
	Payment   *payment.State `json:"payment,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store keeps sessions in Redis with a sliding TTL.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
	Now    func() time.Time
}

func (s *Store) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "pos:session:"
	}
	return prefix + id
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create starts an empty session for the given terminal user.
func (s *Store) Create(ctx context.Context, userID string) (Session, error) {
	if s == nil || s.R == nil {
		return Session{}, errors.New("session store not configured")
	}
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UpdatedAt: s.now(),
	}
	if err := s.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if s == nil || s.R == nil {
		return Session{}, errors.New("session store not configured")
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Save stores the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	sess.UpdatedAt = s.now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.R.Set(ctx, s.key(sess.ID), data, s.ttl()).Err()
}

// Delete discards a session entirely.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	return s.R.Del(ctx, s.key(id)).Err()
}
