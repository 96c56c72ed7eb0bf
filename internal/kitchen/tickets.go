package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeTicket is the asynq task type for kitchen ticket fan-out.
const TaskTypeTicket = "kitchen:ticket"

// QueueName is the asynq queue kitchen tickets are routed to.
const QueueName = "kitchen"

// TicketItem is one line the kitchen has to prepare.
type TicketItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Ticket is what the kitchen display shows for a submitted order.
type Ticket struct {
	OrderID   string       `json:"orderId"`
	TableID   string       `json:"tableId,omitempty"`
	OrderType string       `json:"orderType"`
	Items     []TicketItem `json:"items"`
	PlacedAt  time.Time    `json:"placedAt"`
}

// NewTicketTask wraps a ticket in an asynq task.
func NewTicketTask(t Ticket) (*asynq.Task, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket: %w", err)
	}
	return asynq.NewTask(TaskTypeTicket, payload, asynq.Queue(QueueName), asynq.MaxRetry(5)), nil
}

// Enqueuer fans submitted orders out to the kitchen via asynq. A nil client
// disables fan-out without changing the order flow.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueTicket queues a ticket for the kitchen worker.
func (e Enqueuer) EnqueueTicket(ctx context.Context, t Ticket) error {
	if e.Client == nil {
		return nil
	}
	task, err := NewTicketTask(t)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue kitchen ticket: %w", err)
	}
	return nil
}

// ErrBadTicket indicates an undecodable ticket task; such tasks are not
// retried.
var ErrBadTicket = errors.New("kitchen: malformed ticket payload")

// Worker consumes ticket tasks and posts them on the display board.
type Worker struct {
	Board *Board
}

// HandleTicket implements the asynq handler for TaskTypeTicket.
func (w Worker) HandleTicket(ctx context.Context, task *asynq.Task) error {
	var t Ticket
	if err := json.Unmarshal(task.Payload(), &t); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if t.OrderID == "" {
		return fmt.Errorf("%w: %w", ErrBadTicket, asynq.SkipRetry)
	}
	return w.Board.Post(ctx, t)
}
