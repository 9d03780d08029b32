package seed_test

import (
	"context"
	"testing"
	"time"

	"naktender/internal/portal"
	"naktender/internal/portal/portaltest"
	"naktender/internal/seed"
	"naktender/internal/workflow"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	st := portaltest.NewStore()

	summary, err := seed.Seed(ctx, logger, st, seed.DefaultCatalog(now))
	require.NoError(t, err)
	assert.Equal(t, &seed.Summary{
		Processes:          5,
		RequiredDocuments:  7,
		Templates:          1,
		Criteria:           3,
		ProcessEvaluations: 2,
	}, summary)

	summary, err = seed.Seed(ctx, logger, st, seed.DefaultCatalog(now))
	require.NoError(t, err)
	assert.Equal(t, &seed.Summary{}, summary)

	documents, err := st.Processes().RequiredDocuments(ctx, types.ProcessTypeTender)
	require.NoError(t, err)
	assert.Len(t, documents, 4)
}

func TestDefaultCatalogCoversEveryDisplayStatus(t *testing.T) {
	catalog := seed.DefaultCatalog(now)

	seen := map[types.DisplayStatus]bool{}
	for _, p := range catalog.Processes {
		seen[workflow.ProcessStatus(p, now)] = true
	}

	assert.True(t, seen[types.DisplayStatusOngoing])
	assert.True(t, seen[types.DisplayStatusUpcoming])
	assert.True(t, seen[types.DisplayStatusCompleted])
}

func TestSeededPortalLists(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	st := portaltest.NewStore()

	_, err := seed.Seed(ctx, logger, st, seed.DefaultCatalog(now))
	require.NoError(t, err)

	svc := portal.New(&types.Config{UploadMaxBytes: 1 << 10}, logger, st, portaltest.NewBlobs(),
		portal.WithClock(func() time.Time { return now }))

	page, err := svc.ListProcesses(ctx, types.ProcessFilter{Status: string(types.DisplayStatusOngoing)})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	detail, err := svc.Process(ctx, "T-1404-001")
	require.NoError(t, err)
	assert.Len(t, detail.RequiredDocuments, 4)
}
