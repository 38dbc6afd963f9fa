package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/devlinkgh/backend/internal/escrow"
)

// Queue inserts reconcile and repair jobs. The river client is set after
// construction because the client needs the workers, and the workers need
// the engine, which needs this queue as its escalator.
type Queue struct {
	mu     sync.Mutex
	client *river.Client[pgx.Tx]
}

func NewQueue() *Queue {
	return &Queue{}
}

// SetClient wires the river client once it exists.
func (q *Queue) SetClient(client *river.Client[pgx.Tx]) {
	q.mu.Lock()
	q.client = client
	q.mu.Unlock()
}

func (q *Queue) get() (*river.Client[pgx.Tx], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.client == nil {
		return nil, errors.New("job queue not started")
	}
	return q.client, nil
}

// EnqueueReconcile schedules an asynchronous deposit reconciliation.
func (q *Queue) EnqueueReconcile(ctx context.Context, reference string) error {
	client, err := q.get()
	if err != nil {
		return err
	}
	_, err = client.Insert(ctx, DepositJobArgs{Reference: reference}, nil)
	return err
}

// EscalateCompensation schedules a compensation repair for retry.
func (q *Queue) EscalateCompensation(ctx context.Context, r escrow.Repair) error {
	client, err := q.get()
	if err != nil {
		return err
	}
	_, err = client.Insert(ctx, RepairJobArgs{Repair: r}, nil)
	return err
}
