package services

import (
	"context"
	"errors"
	"sync"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Checker runs one probe-and-commit step for a single item. The bulk,
// single and background drivers all go through the same Checker, so an item
// is never probed and committed by two of them at once within a process.
type Checker struct {
	store     driven.ItemStore
	probe     driven.StatusProbe
	committer *TransitionCommitter
	baseURL   string
	locks     *keyLocks
}

// NewChecker creates a checker. baseURL is the listing host used to build
// check URLs; empty selects the public App Store.
func NewChecker(
	store driven.ItemStore,
	probe driven.StatusProbe,
	committer *TransitionCommitter,
	baseURL string,
) *Checker {
	return &Checker{
		store:     store,
		probe:     probe,
		committer: committer,
		baseURL:   baseURL,
		locks:     newKeyLocks(),
	}
}

// Check loads, probes and commits one item.
//
// ctx bounds the whole step. When it is done while waiting for the item,
// before the probe starts, or once the probe returns, the item is left
// untouched and a ResultCancelled is returned. The probe stops waiting for
// a pacing slot when ctx is done but lets a sent request finish. The commit
// runs detached from ctx so a started commit is never torn.
func (c *Checker) Check(ctx context.Context, key domain.ItemKey) domain.CheckResult {
	result := domain.CheckResult{Key: key}

	unlock, err := c.locks.lock(ctx, key)
	if err != nil {
		result.Kind = domain.ResultCancelled
		return result
	}
	defer unlock()

	if ctx.Err() != nil {
		result.Kind = domain.ResultCancelled
		return result
	}

	item, err := c.store.Get(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			result.Kind = domain.ResultCancelled
			return result
		}
		logger.Warn("check %s: load failed: %v", key, err)
		result.Kind = domain.ResultSkipped
		result.Err = err
		return result
	}
	result.ItemName = item.Name

	url, err := item.CheckURL(c.baseURL)
	if err != nil {
		logger.Warn("check %s: %v", key, err)
		result.Kind = domain.ResultSkipped
		result.Err = err
		return result
	}

	logger.Debug("probing %s (%s)", key, url)
	outcome := c.probe.Probe(ctx, url)
	result.Outcome = outcome
	logger.Debug("probe %s: %s", key, outcome)

	if ctx.Err() != nil {
		logger.Debug("check %s: discarded %s outcome after cancellation", key, outcome)
		result.Kind = domain.ResultCancelled
		return result
	}

	commit, err := c.committer.Commit(context.WithoutCancel(ctx), key, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Kind = domain.ResultSkipped
		} else {
			result.Kind = domain.ResultFailed
		}
		logger.Warn("check %s: %v", key, err)
		result.Err = err
		return result
	}

	result.Kind = commit.Kind
	result.From = commit.From
	result.To = commit.To
	if commit.Kind == domain.ResultChanged {
		logger.Info("%s (%s): %s -> %s", item.Name, key, commit.From, commit.To)
	}
	return result
}

// keyLocks hands out one single-slot semaphore per item key. Entries are
// dropped when no caller holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[domain.ItemKey]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[domain.ItemKey]*keyLock)}
}

// lock blocks until key is free or ctx is done. On success it returns the
// matching unlock.
func (l *keyLocks) lock(ctx context.Context, key domain.ItemKey) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	return func() {
		<-kl.sem
		l.release(key, kl)
	}, nil
}

func (l *keyLocks) release(key domain.ItemKey, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
