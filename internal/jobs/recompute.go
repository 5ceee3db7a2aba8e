package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Spok95/lms-points/internal/points"
)

type Reconciler interface {
	Reconcile(ctx context.Context, userID int64) (points.ReconcileResult, error)
}

type StudentLister interface {
	StudentIDs(ctx context.Context) ([]int64, error)
}

// RecomputeQueue: набор пользователей, чей итог мог устареть. Повторная
// постановка того же пользователя до разбора ничего не добавляет.
type RecomputeQueue struct {
	mu      sync.Mutex
	pending map[int64]struct{}
	rec     Reconciler
	log     *zap.Logger
}

func NewRecomputeQueue(rec Reconciler, log *zap.Logger) *RecomputeQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecomputeQueue{pending: make(map[int64]struct{}), rec: rec, log: log}
}

func (q *RecomputeQueue) Enqueue(userIDs ...int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range userIDs {
		q.pending[id] = struct{}{}
	}
	queueDepth.Set(float64(len(q.pending)))
}

func (q *RecomputeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *RecomputeQueue) take() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]int64, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	q.pending = make(map[int64]struct{})
	queueDepth.Set(0)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Drain сверяет всех из очереди. Конфликт версии и сбои записи возвращают
// пользователя в очередь до следующего прохода; удалённые пользователи выпадают.
func (q *RecomputeQueue) Drain(ctx context.Context) error {
	var errs []error
	for _, id := range q.take() {
		if err := ctx.Err(); err != nil {
			q.Enqueue(id)
			continue
		}
		_, err := q.rec.Reconcile(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, points.ErrUserNotFound):
			q.log.Debug("recompute skipped, user gone", zap.Int64("user_id", id))
		case errors.Is(err, points.ErrStaleTotal):
			q.Enqueue(id)
		default:
			q.Enqueue(id)
			errs = append(errs, err)
			q.log.Warn("recompute failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

// Sweep ставит в очередь всех учеников: страховка от пропущенных событий.
func (q *RecomputeQueue) Sweep(lister StudentLister) Job {
	return func(ctx context.Context) error {
		ids, err := lister.StudentIDs(ctx)
		if err != nil {
			return err
		}
		q.Enqueue(ids...)
		return nil
	}
}
