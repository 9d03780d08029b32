package portal

import (
	"context"

	"naktender/internal/workflow"
	"naktender/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Profile is everything the account dashboard shows at once.
type Profile struct {
	Contractor   *types.Contractor           `json:"contractor"`
	Members      []*types.ContractorMember   `json:"members"`
	Certificates []*types.Certificate        `json:"certificates"`
	Tasks        []*types.Task               `json:"tasks"`
	Account      workflow.AccountState       `json:"account"`
	Purchases    []*types.PaymentTransaction `json:"purchases"`
	Submissions  []*types.ProcessSubmission  `json:"submissions"`
}

// Profile loads the dashboard with six independent reads issued
// concurrently.
func (s *Service) Profile(ctx context.Context, contractorID string) (*Profile, error) {
	profile := new(Profile)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		profile.Contractor, err = s.store.Contractors().Contractor(gctx, contractorID)
		return err
	})
	g.Go(func() (err error) {
		profile.Members, err = s.store.Contractors().Members(gctx, contractorID)
		return err
	})
	g.Go(func() (err error) {
		profile.Certificates, err = s.store.Certificates().ActiveCertificates(gctx, contractorID)
		return err
	})
	g.Go(func() (err error) {
		profile.Tasks, err = s.store.Tasks().TaskHistory(gctx, types.TaskEntityContractor, contractorID)
		return err
	})
	g.Go(func() (err error) {
		profile.Purchases, err = s.store.Payments().Purchases(gctx, contractorID)
		return err
	})
	g.Go(func() (err error) {
		profile.Submissions, err = s.store.Submissions().Submissions(gctx, contractorID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var latest *types.Task
	if len(profile.Tasks) > 0 {
		latest = profile.Tasks[0]
	}
	profile.Account = workflow.AccountStateFor(latest)

	return profile, nil
}
