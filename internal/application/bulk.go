package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
)

// BulkDelete removes targets one at a time, pausing Delay between deletions.
type BulkDelete struct {
	Targets   []domain.TargetRef
	MissingOK bool
	Delay     time.Duration
}

// BulkDeleteSteps returns one delete step per target. Every step after the
// first waits Delay before deleting.
func (e *Executor) BulkDeleteSteps(bulk BulkDelete) []Step {
	steps := make([]Step, 0, len(bulk.Targets))
	for i, target := range bulk.Targets {
		action := domain.DeleteEntity{Target: target, MissingOK: bulk.MissingOK}
		wait := time.Duration(0)
		if i > 0 {
			wait = bulk.Delay
		}
		steps = append(steps, Step{
			Type: action.Type(),
			Run: func(ctx context.Context, session *Session) (domain.Outcome, error) {
				if err := sleepContext(ctx, wait); err != nil {
					return domain.Outcome{}, err
				}
				return e.Execute(ctx, session, action)
			},
		})
	}
	return steps
}

// DeleteCategoryTreeStep deletes every channel parented to the category, then
// the category itself. Every lookup and deletion gets its own action deadline,
// so large trees with a delay are not cut short.
func (e *Executor) DeleteCategoryTreeStep(category domain.TargetRef, missingOK bool, delay time.Duration) Step {
	return Step{
		Type:    domain.ActionDeleteEntity,
		PerCall: true,
		Run: func(ctx context.Context, session *Session) (domain.Outcome, error) {
			return e.deleteCategoryTree(ctx, session, category, missingOK, delay)
		},
	}
}

func (e *Executor) deleteCategoryTree(ctx context.Context, session *Session, category domain.TargetRef, missingOK bool, delay time.Duration) (domain.Outcome, error) {
	api, err := session.API()
	if err != nil {
		return domain.Outcome{}, err
	}

	var handle Handle
	err = session.bounded(ctx, "resolve category", func(ctx context.Context) error {
		resolved, err := e.resolver.Resolve(ctx, api, category)
		handle = resolved
		return err
	})
	if err != nil {
		if missingOK && errors.Is(err, domain.ErrNotFound) {
			return domain.AffectedOutcome(domain.ActionDeleteEntity, category, "already absent"), nil
		}
		return domain.Outcome{}, err
	}

	var channels []domain.Channel
	err = session.bounded(ctx, "list channels", func(ctx context.Context) error {
		listed, err := api.GuildChannels(ctx, handle.Channel.GuildID)
		channels = listed
		return err
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	deleted, skipped := 0, 0
	for _, channel := range channels {
		if channel.ParentID != handle.Channel.ID {
			continue
		}
		if deleted+skipped > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return domain.Outcome{}, err
			}
		}
		err := session.bounded(ctx, "delete child", func(ctx context.Context) error {
			return api.DeleteChannel(ctx, channel.ID)
		})
		if missingOK && errors.Is(err, domain.ErrNotFound) {
			skipped++
			continue
		}
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("delete child %s after %d deletions: %w", channel.ID, deleted, err)
		}
		e.log.Debug("deleted category child", logger.Stringer("id", channel.ID), logger.String("name", channel.Name))
		deleted++
	}

	if deleted+skipped > 0 {
		if err := sleepContext(ctx, delay); err != nil {
			return domain.Outcome{}, err
		}
	}
	err = session.bounded(ctx, "delete category", func(ctx context.Context) error {
		return api.DeleteChannel(ctx, handle.Channel.ID)
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.AffectedOutcome(domain.ActionDeleteEntity, handle.Channel.Ref(), fmt.Sprintf("deleted %d children and the category", deleted)), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
