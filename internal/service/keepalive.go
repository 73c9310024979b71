package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RenewFunc re-issues the session credential for a user. It returns false
// when the session entry is gone (expired or logged out), which terminates
// the keep-alive loop for that user. Errors are transient: the loop logs
// them and retries on the next interval.
type RenewFunc func(ctx context.Context, userID uuid.UUID) (bool, error)

// KeepAlive is a supervised registry of per-session background renewal
// tasks keyed by user id. Each task is a cancellable goroutine, not an
// inline interval loop: a repeated login replaces the previous task instead
// of accumulating one loop per login.
type KeepAlive struct {
	root     context.Context
	interval time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	tasks map[uuid.UUID]*keepAliveTask
	wg    sync.WaitGroup
}

type keepAliveTask struct {
	cancel context.CancelFunc
}

// NewKeepAlive constructs the registry. root bounds the lifetime of every
// task; interval is the renewal period (access TTL minus a safety margin).
func NewKeepAlive(root context.Context, interval time.Duration, log *zap.Logger) *KeepAlive {
	return &KeepAlive{
		root:     root,
		interval: interval,
		log:      log,
		tasks:    map[uuid.UUID]*keepAliveTask{},
	}
}

// Start registers a renewal task for the user, replacing any existing one.
func (k *KeepAlive) Start(userID uuid.UUID, renew RenewFunc) {
	ctx, cancel := context.WithCancel(k.root)
	t := &keepAliveTask{cancel: cancel}

	k.mu.Lock()
	if prev, ok := k.tasks[userID]; ok {
		prev.cancel()
	}
	k.tasks[userID] = t
	k.mu.Unlock()

	k.wg.Add(1)
	go k.run(ctx, t, userID, renew)
}

// Stop cancels the task for the user, if any. Called on logout.
func (k *KeepAlive) Stop(userID uuid.UUID) {
	k.mu.Lock()
	t, ok := k.tasks[userID]
	if ok {
		delete(k.tasks, userID)
	}
	k.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// Close cancels every task and waits for the goroutines to exit.
func (k *KeepAlive) Close() {
	k.mu.Lock()
	for id, t := range k.tasks {
		t.cancel()
		delete(k.tasks, id)
	}
	k.mu.Unlock()
	k.wg.Wait()
}

func (k *KeepAlive) run(ctx context.Context, t *keepAliveTask, userID uuid.UUID, renew RenewFunc) {
	defer k.wg.Done()
	defer t.cancel()
	defer k.remove(userID, t)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alive, err := renew(ctx, userID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				k.log.Warn("session renewal failed",
					zap.String("user_id", userID.String()),
					zap.Error(err),
				)
				continue
			}
			if !alive {
				k.log.Debug("session gone, stopping keep-alive",
					zap.String("user_id", userID.String()),
				)
				return
			}
		}
	}
}

// remove deregisters the task, but only while it still owns the slot: a
// newer task started for the same user must not be evicted by the old one.
func (k *KeepAlive) remove(userID uuid.UUID, t *keepAliveTask) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tasks[userID] == t {
		delete(k.tasks, userID)
	}
}
