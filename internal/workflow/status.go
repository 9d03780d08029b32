package workflow

import (
	"strings"
	"time"

	"naktender/pkg/types"
)

// DeriveStatus computes the display status of a process from its dates and
// explicit status. It is the only place this rule lives; every listing goes
// through it.
func DeriveStatus(publishDate, submissionEndDate *time.Time, explicitStatus string, now time.Time) types.DisplayStatus {
	switch strings.ToUpper(strings.TrimSpace(explicitStatus)) {
	case types.ProcessStatusClosed, types.ProcessStatusCancelled:
		return types.DisplayStatusCompleted
	}

	if publishDate != nil && publishDate.After(now) {
		return types.DisplayStatusUpcoming
	}

	if submissionEndDate != nil && submissionEndDate.Before(now) {
		return types.DisplayStatusCompleted
	}

	if publishDate != nil && (submissionEndDate == nil || !submissionEndDate.Before(now)) {
		return types.DisplayStatusOngoing
	}

	return types.DisplayStatusUpcoming
}

// ProcessStatus is DeriveStatus applied to a stored process.
func ProcessStatus(p *types.PublishedProcess, now time.Time) types.DisplayStatus {
	return DeriveStatus(p.PublishDate, p.SubmissionEndDate, p.Status, now)
}
