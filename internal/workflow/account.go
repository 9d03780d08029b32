package workflow

import (
	"naktender/pkg/types"
)

// Onboarding wizard steps.
const (
	AccountStepProfile  = 0
	AccountStepRevision = 2
	AccountStepReview   = 3
	AccountStepActive   = 5
)

type Alert string

const (
	AlertCompletionRequired Alert = "completion_required"
	AlertUnderReview        Alert = "under_review"
	AlertAccountActive      Alert = "account_active"
	AlertRejected           Alert = "rejected"
)

type AlertVariant string

const (
	AlertVariantInfo    AlertVariant = "info"
	AlertVariantSuccess AlertVariant = "success"
	AlertVariantError   AlertVariant = "error"
)

// AccountState is what the account wizard renders for a contractor.
type AccountState struct {
	IsEditable      bool             `json:"isEditable"`
	CurrentStep     int              `json:"currentStep"`
	Alert           Alert            `json:"alert"`
	AlertVariant    AlertVariant     `json:"alertVariant"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	TaskStatus      types.TaskStatus `json:"taskStatus,omitempty"`
}

// AccountStateFor derives the wizard state from the latest verification
// task, nil meaning none was ever created.
func AccountStateFor(latest *types.Task) AccountState {
	if latest == nil {
		return AccountState{
			IsEditable:   true,
			CurrentStep:  AccountStepProfile,
			Alert:        AlertCompletionRequired,
			AlertVariant: AlertVariantInfo,
		}
	}

	switch latest.Status {
	case types.TaskStatusPending, types.TaskStatusInProgress:
		return AccountState{
			IsEditable:   false,
			CurrentStep:  AccountStepReview,
			Alert:        AlertUnderReview,
			AlertVariant: AlertVariantInfo,
			TaskStatus:   latest.Status,
		}
	case types.TaskStatusCompleted:
		return AccountState{
			IsEditable:   false,
			CurrentStep:  AccountStepActive,
			Alert:        AlertAccountActive,
			AlertVariant: AlertVariantSuccess,
			TaskStatus:   latest.Status,
		}
	case types.TaskStatusRejected:
		state := AccountState{
			IsEditable:   true,
			CurrentStep:  AccountStepRevision,
			Alert:        AlertRejected,
			AlertVariant: AlertVariantError,
			TaskStatus:   latest.Status,
		}
		if latest.RejectionReason != nil {
			state.RejectionReason = *latest.RejectionReason
		}
		return state
	}

	// Unknown statuses lock the form until a reviewer fixes the record.
	return AccountState{
		IsEditable:   false,
		CurrentStep:  AccountStepReview,
		Alert:        AlertUnderReview,
		AlertVariant: AlertVariantInfo,
		TaskStatus:   latest.Status,
	}
}

// EditAfterRejection reopens the wizard at the first step. The rejection
// reason stays on the task and is only dropped from the view.
func EditAfterRejection(latest *types.Task) (AccountState, error) {
	if latest == nil || latest.Status != types.TaskStatusRejected {
		return AccountStateFor(latest), types.ErrNotRejected
	}

	return AccountState{
		IsEditable:   true,
		CurrentStep:  AccountStepProfile,
		Alert:        AlertCompletionRequired,
		AlertVariant: AlertVariantInfo,
		TaskStatus:   latest.Status,
	}, nil
}

// CheckAccountEditable is the server-side write guard for account data.
func CheckAccountEditable(latest *types.Task) error {
	if !AccountStateFor(latest).IsEditable {
		return types.ErrAccountLocked
	}
	return nil
}
