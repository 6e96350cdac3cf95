package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSpinnerShowsRunningStep(t *testing.T) {
	model := newSessionSpinnerModel(connectLabel, nil)
	assert.Contains(t, model.View(), connectLabel)

	updated, _ := model.Update(stepStartedMsg{Index: 2, Total: 5, Action: domain.ActionPostMessage})
	view := updated.View()
	assert.Contains(t, view, "[2/5]")
	assert.Contains(t, view, string(domain.ActionPostMessage))
	assert.NotContains(t, view, connectLabel)

	done, _ := updated.Update(sessionDoneMsg{})
	assert.Empty(t, done.View())
}

func TestRunWithSpinnerReturnsWorkError(t *testing.T) {
	cause := errors.New("gateway closed")
	var out bytes.Buffer

	err := runWithSpinner(context.Background(), &out, connectLabel, func(_ context.Context, progress func(application.StepProgress)) error {
		progress(application.StepProgress{Index: 1, Total: 1, Action: domain.ActionCreateCategory})
		return cause
	})
	require.ErrorIs(t, err, cause)
}
