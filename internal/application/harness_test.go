package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okStep(action domain.ActionType) Step {
	return Step{Type: action, Run: func(ctx context.Context, session *Session) (domain.Outcome, error) {
		if _, err := session.API(); err != nil {
			return domain.Outcome{}, err
		}
		return domain.Outcome{Action: action, Success: true}, nil
	}}
}

func failStep(action domain.ActionType, err error) Step {
	return Step{Type: action, Run: func(context.Context, *Session) (domain.Outcome, error) {
		return domain.Outcome{}, err
	}}
}

func TestRunActionSuccessClosesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, okStep(domain.ActionPostMessage))

	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, domain.SessionClosed, result.State)
	assert.Equal(t, botID, result.Identity.UserID)
	assert.NoError(t, result.Err())
	f.requireClosed(t)
}

func TestRunActionFailureStillClosesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cause := domain.NewPlatformError(403, 50013, "Missing Permissions", nil)
	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, failStep(domain.ActionRenameEntity, cause))

	outcome := result.Outcomes[0]
	assert.False(t, outcome.Success)
	assert.Equal(t, "PermissionDeniedError", outcome.ErrorKind)
	assert.Equal(t, domain.ActionRenameEntity, outcome.Action)
	assert.Equal(t, domain.SessionClosed, result.State)
	assert.ErrorIs(t, result.Err(), domain.ErrPermissionDenied)
	f.requireClosed(t)
}

func TestRunActionAlwaysRequestsGuildsIntent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.harness.RunAction(context.Background(), testToken, domain.IntentMessageContent, okStep(domain.ActionReadHistory))

	assert.True(t, f.gateway.LastIntents().Has(domain.IntentGuilds))
	assert.True(t, f.gateway.LastIntents().Has(domain.IntentMessageContent))
}

func TestRunActionEmptyTokenNeverConnects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.harness.RunAction(context.Background(), "  ", 0, okStep(domain.ActionPostMessage))

	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, domain.ErrConfig)
	opened, _ := f.gateway.Connections()
	assert.Zero(t, opened)
}

func TestRunActionRejectedTokenFailsSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gateway.RejectToken(testToken)

	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, okStep(domain.ActionPostMessage), okStep(domain.ActionAddReaction))

	assert.Equal(t, domain.SessionFailed, result.State)
	assert.Equal(t, "AuthError", result.Outcomes[0].ErrorKind)
	assert.True(t, result.Outcomes[1].Skipped)
}

func TestRunActionConnectDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithConnectTimeout(20*time.Millisecond))
	f.gateway.HoldReady()

	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, okStep(domain.ActionPostMessage))

	assert.Equal(t, domain.SessionFailed, result.State)
	assert.ErrorIs(t, result.Outcomes[0].Err, domain.ErrTimeout)
	assert.Equal(t, "TimeoutError", result.Outcomes[0].ErrorKind)
	f.requireClosed(t)
}

func TestRunActionActionDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithActionTimeout(20*time.Millisecond))
	blocking := Step{Type: domain.ActionReadHistory, Run: func(ctx context.Context, _ *Session) (domain.Outcome, error) {
		<-ctx.Done()
		return domain.Outcome{}, ctx.Err()
	}}

	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, blocking)

	assert.Equal(t, "TimeoutError", result.Outcomes[0].ErrorKind)
	assert.Equal(t, domain.SessionClosed, result.State)
	f.requireClosed(t)
}

func TestSessionAPIRequiresReadyState(t *testing.T) {
	t.Parallel()

	session := &Session{state: domain.SessionInitializing}
	_, err := session.API()
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)

	f := newFixture(t)
	var borrowed *Session
	f.harness.RunAction(context.Background(), testToken, 0, Step{Type: domain.ActionPostMessage, Run: func(_ context.Context, s *Session) (domain.Outcome, error) {
		borrowed = s
		_, err := s.API()
		return domain.Outcome{Success: true}, err
	}})

	require.NotNil(t, borrowed)
	_, err = borrowed.API()
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
	assert.Equal(t, domain.SessionClosed, borrowed.State())
}

func TestRunActionsStopsAfterFirstFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{},
		okStep(domain.ActionCreateCategory),
		failStep(domain.ActionRenameEntity, domain.ErrNotFound),
		okStep(domain.ActionPostMessage),
	)

	require.Len(t, result.Outcomes, 3)
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, "NotFoundError", result.Outcomes[1].ErrorKind)
	assert.True(t, result.Outcomes[2].Skipped)
	assert.Equal(t, domain.ActionPostMessage, result.Outcomes[2].Action)
}

func TestRunActionsContinueOnError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{ContinueOnError: true},
		failStep(domain.ActionDeleteEntity, domain.ErrNotFound),
		okStep(domain.ActionPostMessage),
	)

	assert.False(t, result.Outcomes[0].Success)
	assert.True(t, result.Outcomes[1].Success)
	assert.Equal(t, 1, countOpened(f))
}

func TestRunActionsReportsProgressForStartedSteps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var seen []StepProgress
	opts := RunOptions{Progress: func(p StepProgress) { seen = append(seen, p) }}

	f.harness.RunActions(context.Background(), testToken, 0, opts,
		okStep(domain.ActionCreateCategory),
		failStep(domain.ActionRenameEntity, domain.ErrNotFound),
		okStep(domain.ActionPostMessage),
	)

	assert.Equal(t, []StepProgress{
		{Index: 1, Total: 3, Action: domain.ActionCreateCategory},
		{Index: 2, Total: 3, Action: domain.ActionRenameEntity},
	}, seen)
}

func TestCloseErrorIsJoinedIntoFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gateway.FailClose(errors.New("websocket: close sent"))

	outcome := f.harness.RunAction(context.Background(), testToken, 0, failStep(domain.ActionDeleteEntity, domain.ErrNotFound))
	assert.ErrorIs(t, outcome.Err, domain.ErrNotFound)
	assert.Contains(t, outcome.Diagnostic, "websocket: close sent")

	result := f.harness.RunActions(context.Background(), testToken, 0, RunOptions{}, okStep(domain.ActionPostMessage))
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, domain.SessionFailed, result.State)
	assert.ErrorContains(t, result.Err(), "websocket: close sent")
}

func TestRunActionsCanceledContextFailsRemainingSteps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := Step{Type: domain.ActionPostMessage, Run: func(context.Context, *Session) (domain.Outcome, error) {
		cancel()
		return domain.Outcome{Success: true}, nil
	}}

	result := f.harness.RunActions(ctx, testToken, 0, RunOptions{ContinueOnError: true}, cancelling, okStep(domain.ActionAddReaction))

	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, "Canceled", result.Outcomes[1].ErrorKind)
	assert.Equal(t, domain.SessionClosed, result.State)
	f.requireClosed(t)
}

func countOpened(f *fixture) int {
	opened, _ := f.gateway.Connections()
	return opened
}
