package workflow

import (
	"testing"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(status types.TaskStatus, reason string) *types.Task {
	t := &types.Task{ID: "t1", EntityType: types.TaskEntityContractor, EntityID: "c1", Status: status}
	if reason != "" {
		t.RejectionReason = utils.StringPtr(reason)
	}
	return t
}

func TestAccountStateFor(t *testing.T) {
	tests := []struct {
		name     string
		task     *types.Task
		editable bool
		step     int
		alert    Alert
		reason   string
	}{
		{"no task", nil, true, AccountStepProfile, AlertCompletionRequired, ""},
		{"pending", task(types.TaskStatusPending, ""), false, AccountStepReview, AlertUnderReview, ""},
		{"in progress", task(types.TaskStatusInProgress, ""), false, AccountStepReview, AlertUnderReview, ""},
		{"completed", task(types.TaskStatusCompleted, ""), false, AccountStepActive, AlertAccountActive, ""},
		{"rejected", task(types.TaskStatusRejected, "missing tax certificate"), true, AccountStepRevision, AlertRejected, "missing tax certificate"},
		{"unknown status", task("ARCHIVED", ""), false, AccountStepReview, AlertUnderReview, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := AccountStateFor(tt.task)
			assert.Equal(t, tt.editable, state.IsEditable)
			assert.Equal(t, tt.step, state.CurrentStep)
			assert.Equal(t, tt.alert, state.Alert)
			assert.Equal(t, tt.reason, state.RejectionReason)
			assert.Equal(t, tt.editable, CheckAccountEditable(tt.task) == nil)
		})
	}
}

func TestEditAfterRejection(t *testing.T) {
	rejected := task(types.TaskStatusRejected, "blurry statute")

	state, err := EditAfterRejection(rejected)
	require.NoError(t, err)
	require.True(t, state.IsEditable)
	require.Equal(t, AccountStepProfile, state.CurrentStep)
	require.Empty(t, state.RejectionReason)
	require.Equal(t, "blurry statute", *rejected.RejectionReason)

	for _, latest := range []*types.Task{nil, task(types.TaskStatusPending, ""), task(types.TaskStatusCompleted, "")} {
		_, err := EditAfterRejection(latest)
		require.ErrorIs(t, err, types.ErrNotRejected)
	}
}
