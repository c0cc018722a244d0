package reviewmodule

import (
	"context"
	"testing"

	"github.com/mantonx/streamhub/internal/database/dbtest"
	reviewerrors "github.com/mantonx/streamhub/internal/modules/reviewmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noShows struct {
	services.CatalogService
}

func (noShows) ShowExists(context.Context, uint) (bool, error) { return false, nil }

func TestModuleLifecycle(t *testing.T) {
	services.RegisterService[services.CatalogService](services.CatalogServiceName, noShows{})
	t.Cleanup(func() {
		services.UnregisterService(services.CatalogServiceName)
		services.UnregisterService(services.ReviewServiceName)
	})

	m := NewModule()
	assert.Equal(t, ModuleID, m.ID())
	assert.Equal(t, []string{services.ReviewServiceName}, m.ProvidedServices())

	require.NoError(t, m.Migrate(dbtest.New(t)))
	require.NoError(t, m.Init())

	svc, err := services.GetService[services.ReviewService](services.ReviewServiceName)
	require.NoError(t, err)
	_, err = svc.SubmitReview(context.Background(), 1, 3, types.ReviewInput{Rating: 3}, "")
	assert.ErrorIs(t, err, reviewerrors.ErrShowNotFound)

	count, err := svc.CountReviews(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, count)
}
