package service

import (
	"context"
	"errors"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/eapache/go-resiliency/semaphore"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

// writerLock is the single logical writer lock over the whole store.
type writerLock interface {
	Acquire(ctx context.Context) error
	Release()
}

type semaphoreLock struct {
	sem *semaphore.Semaphore
}

// newSemaphoreLock admits one writer; others wait up to timeout, then get ErrBusy.
func newSemaphoreLock(timeout time.Duration) *semaphoreLock {
	return &semaphoreLock{sem: semaphore.New(1, timeout)}
}

// Acquire checks ctx only before waiting: the semaphore wait itself is not
// cancellable and lasts up to the configured timeout.
func (l *semaphoreLock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.sem.Acquire(); err != nil {
		if errors.Is(err, semaphore.ErrNoTickets) {
			return domain.ErrBusy
		}
		return err
	}
	return nil
}

func (l *semaphoreLock) Release() {
	l.sem.Release()
}

// retryingLock retries ErrBusy acquisitions with exponential backoff.
// Every other error fails immediately.
type retryingLock struct {
	next    writerLock
	retrier *retrier.Retrier
}

func withRetry(next writerLock, retries int, backoff time.Duration) writerLock {
	if retries <= 0 {
		return next
	}
	return &retryingLock{
		next:    next,
		retrier: retrier.New(retrier.ExponentialBackoff(retries, backoff), retrier.WhitelistClassifier{domain.ErrBusy}),
	}
}

func (l *retryingLock) Acquire(ctx context.Context) error {
	return l.retrier.RunCtx(ctx, func(ctx context.Context) error {
		return l.next.Acquire(ctx)
	})
}

func (l *retryingLock) Release() {
	l.next.Release()
}
