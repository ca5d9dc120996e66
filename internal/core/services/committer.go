package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

// commitAction is what the committer does for one (status, outcome) pair.
type commitAction int

const (
	// actionTouch records the check time only.
	actionTouch commitAction = iota

	// actionTransition moves the item to the outcome's status.
	actionTransition
)

// transitionTable maps the current status and a probe outcome to an action.
// Unavailable outcomes never transition. Pairs not listed touch.
var transitionTable = map[domain.Status]map[domain.ProbeOutcome]commitAction{
	domain.StatusLive: {
		domain.OutcomeLive:    actionTouch,
		domain.OutcomeRemoved: actionTransition,
	},
	domain.StatusRemoved: {
		domain.OutcomeLive:    actionTransition,
		domain.OutcomeRemoved: actionTouch,
	},
	domain.StatusUnavailable: {
		domain.OutcomeLive:    actionTransition,
		domain.OutcomeRemoved: actionTransition,
	},
}

// decide looks up the action for a status and outcome.
// Unknown stored statuses are treated as unavailable.
func decide(current domain.Status, outcome domain.ProbeOutcome) commitAction {
	row, ok := transitionTable[current]
	if !ok {
		row = transitionTable[domain.StatusUnavailable]
	}
	return row[outcome]
}

// TransitionCommitter applies a probe outcome to an item's persisted status.
// It is the only writer of Status, LastCheckedAt and BanDate.
type TransitionCommitter struct {
	store driven.ItemStore
	now   func() time.Time
}

// NewTransitionCommitter creates a committer over store.
func NewTransitionCommitter(store driven.ItemStore) *TransitionCommitter {
	return &TransitionCommitter{
		store: store,
		now:   time.Now,
	}
}

// Commit applies outcome to the item identified by key inside one store
// transaction. Status, check time, ban date and the audit record land
// together or not at all.
//
// Returns domain.ErrNotFound if the item is gone, or an error wrapping
// domain.ErrCommitFailed if the transaction could not be applied.
func (c *TransitionCommitter) Commit(
	ctx context.Context,
	key domain.ItemKey,
	outcome domain.ProbeOutcome,
) (domain.CommitResult, error) {
	var result domain.CommitResult

	err := c.store.Transact(ctx, key, func(tx driven.ItemTx) error {
		item := tx.Item()
		now := c.now()
		from := item.Status

		if decide(from, outcome) == actionTouch {
			item.LastCheckedAt = &now
			result = domain.CommitResult{Kind: domain.ResultUnchanged, From: from, To: from}
			return nil
		}

		to := outcome.Status()
		record := domain.TransitionRecord{
			ID:       uuid.NewString(),
			ItemKey:  key,
			At:       now,
			Kind:     domain.ChangeStatus,
			OldValue: from.String(),
			NewValue: to.String(),
		}
		if err := tx.Append(record); err != nil {
			return err
		}

		item.Status = to
		item.LastCheckedAt = &now
		switch to {
		case domain.StatusRemoved:
			banned := now
			item.BanDate = &banned
		case domain.StatusLive:
			item.BanDate = nil
		}

		result = domain.CommitResult{Kind: domain.ResultChanged, From: from, To: to}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CommitResult{}, err
		}
		return domain.CommitResult{}, fmt.Errorf("%w: %s: %w", domain.ErrCommitFailed, key, err)
	}

	return result, nil
}
