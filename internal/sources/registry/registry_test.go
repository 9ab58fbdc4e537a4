package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap/internal/secrets"
	"github.com/agentstation/upcmap/internal/sources/fooddata"
	"github.com/agentstation/upcmap/internal/sources/local"
	"github.com/agentstation/upcmap/internal/sources/openfoodfacts"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/sources"
)

func testDeps() Deps {
	return Deps{
		State:       budget.MustNewState(),
		Credentials: secrets.MapLookup(map[string]string{"FDC_API_KEY": "key"}),
		Logger:      logging.NewNopLogger(),
	}
}

func TestBuildDefaultOrder(t *testing.T) {
	srcs, err := Build(nil, testDeps())
	require.NoError(t, err)
	assert.Equal(t, DefaultOrder(), srcs.IDs())

	src, ok := srcs.Get(fooddata.ID)
	require.True(t, ok)
	reporter, ok := src.(sources.CredentialReporter)
	require.True(t, ok)
	assert.True(t, reporter.HasCredential())
}

func TestBuildPreservesOrder(t *testing.T) {
	ids := []products.SourceID{local.ID, openfoodfacts.ID}
	srcs, err := Build(ids, testDeps())
	require.NoError(t, err)
	assert.Equal(t, ids, srcs.IDs())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]products.SourceID{"gs1"}, testDeps())
	assert.True(t, errors.IsValidationError(err))

	_, err = Build([]products.SourceID{local.ID, local.ID}, testDeps())
	assert.True(t, errors.IsValidationError(err))

	_, err = Build(nil, Deps{})
	assert.True(t, errors.IsValidationError(err))
}

func TestBuildWithoutCredentials(t *testing.T) {
	deps := testDeps()
	deps.Credentials = nil

	srcs, err := Build([]products.SourceID{fooddata.ID}, deps)
	require.NoError(t, err)
	src, _ := srcs.Get(fooddata.ID)
	assert.False(t, src.(sources.CredentialReporter).HasCredential())
}

func TestList(t *testing.T) {
	assert.Equal(t, []products.SourceID{fooddata.ID, local.ID, openfoodfacts.ID}, List())
	assert.True(t, Has(openfoodfacts.ID))
	assert.False(t, Has("gs1"))
}
