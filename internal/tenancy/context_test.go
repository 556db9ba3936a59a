package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), "org-1")
	orgID, ok := OrgIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "org-1", orgID)
}

func TestOrgIDMissing(t *testing.T) {
	_, ok := OrgIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OrgIDFromContext(WithOrgID(context.Background(), ""))
	assert.False(t, ok, "empty org id is not a scope")
}

func TestRequire(t *testing.T) {
	orgID, err := Require(WithOrgID(context.Background(), "org-1"))
	require.NoError(t, err)
	assert.Equal(t, "org-1", orgID)

	_, err = Require(context.Background())
	assert.ErrorIs(t, err, ErrMissingOrg)
}
