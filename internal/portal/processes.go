package portal

import (
	"context"
	"strings"
	"time"

	"naktender/internal/store"
	"naktender/internal/workflow"
	"naktender/pkg/types"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	statusFilterAll = "all"
)

// ListProcesses returns one page of published processes. The status
// filter applies to the derived display status.
func (s *Service) ListProcesses(ctx context.Context, filter types.ProcessFilter) (*types.ProcessPage, error) {
	q, err := processQuery(filter)
	if err != nil {
		return nil, err
	}

	status := types.DisplayStatus(strings.ToLower(strings.TrimSpace(filter.Status)))
	if status == statusFilterAll {
		status = ""
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	candidates, err := s.store.Processes().Processes(ctx, q)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]*types.ProcessListItem, 0, len(candidates))
	for _, p := range candidates {
		derived := workflow.ProcessStatus(p, now)
		if status != "" && derived != status {
			continue
		}
		items = append(items, &types.ProcessListItem{PublishedProcess: *p, DisplayStatus: derived})
	}

	result := &types.ProcessPage{
		Page:       page,
		Limit:      limit,
		Total:      len(items),
		TotalPages: (len(items) + limit - 1) / limit,
		Items:      []*types.ProcessListItem{},
	}

	start := (page - 1) * limit
	if start < len(items) {
		end := min(start+limit, len(items))
		result.Items = items[start:end]
	}

	return result, nil
}

func processQuery(filter types.ProcessFilter) (store.ProcessQuery, error) {
	verr := types.NewValidationError("listing filter is invalid")

	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status != "" && status != statusFilterAll && !types.DisplayStatus(status).Valid() {
		verr.Add("status", "must be one of: all ongoing upcoming completed")
	}

	q := store.ProcessQuery{
		Search:   filter.Search,
		Category: strings.TrimSpace(filter.Category),
	}

	if t := strings.ToUpper(strings.TrimSpace(filter.Type)); t != "" {
		switch types.ProcessType(t) {
		case types.ProcessTypeTender, types.ProcessTypeInquiry, types.ProcessTypeCall:
			q.ProcessType = types.ProcessType(t)
		default:
			verr.Add("type", "must be one of: TENDER INQUIRY CALL")
		}
	}

	if d := strings.TrimSpace(filter.EndDate); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			verr.Add("endDate", "must be a date formatted as YYYY-MM-DD")
		} else {
			endOfDay := day.Add(24*time.Hour - time.Nanosecond)
			q.EndsBefore = &endOfDay
		}
	}

	if filter.Page < 0 {
		verr.Add("page", "must not be negative")
	}
	if filter.Limit < 0 {
		verr.Add("limit", "must not be negative")
	}

	return q, verr.OrNil()
}

// ProcessDetail is a process with the documents its participants provide.
type ProcessDetail struct {
	Process           *types.PublishedProcess   `json:"process"`
	DisplayStatus     types.DisplayStatus       `json:"displayStatus"`
	RequiredDocuments []*types.RequiredDocument `json:"requiredDocuments"`
}

func (s *Service) Process(ctx context.Context, publicationNumber string) (*ProcessDetail, error) {
	process, err := s.processByNumber(ctx, s.store, publicationNumber)
	if err != nil {
		return nil, err
	}

	documents, err := s.store.Processes().RequiredDocuments(ctx, process.ProcessType)
	if err != nil {
		return nil, err
	}

	return &ProcessDetail{
		Process:           process,
		DisplayStatus:     workflow.ProcessStatus(process, s.now()),
		RequiredDocuments: documents,
	}, nil
}

func (s *Service) processByNumber(ctx context.Context, st Store, publicationNumber string) (*types.PublishedProcess, error) {
	publicationNumber = strings.TrimSpace(publicationNumber)
	if publicationNumber == "" {
		return nil, types.NewValidationError("publication number is required").Add("publicationNumber", "is required")
	}
	return st.Processes().ProcessByPublicationNumber(ctx, publicationNumber)
}

// Submissions lists the contractor's participation requests with the
// display status of their processes.
func (s *Service) Submissions(ctx context.Context, contractorID string) ([]*types.SubmissionListItem, error) {
	submissions, err := s.store.Submissions().Submissions(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		ids = append(ids, sub.ProcessID)
	}

	processes, err := s.store.Processes().ProcessesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.PublishedProcess, len(processes))
	for _, p := range processes {
		byID[p.ID] = p
	}

	now := s.now()
	items := make([]*types.SubmissionListItem, 0, len(submissions))
	for _, sub := range submissions {
		process, ok := byID[sub.ProcessID]
		if !ok {
			continue
		}
		items = append(items, &types.SubmissionListItem{
			Submission:    sub,
			Process:       process,
			DisplayStatus: workflow.ProcessStatus(process, now),
		})
	}

	return items, nil
}
