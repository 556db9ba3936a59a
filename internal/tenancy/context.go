package tenancy

import (
	"context"
	"errors"
)

type ctxKey string

const orgKey ctxKey = "practica.org_id"

// ErrMissingOrg is returned when a caller requires an org scope that is absent.
var ErrMissingOrg = errors.New("tenancy: missing org id")

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(orgKey)
	if val == nil {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok && orgID != ""
}

// Require returns the org id or ErrMissingOrg for non-HTTP callers.
func Require(ctx context.Context) (string, error) {
	orgID, ok := OrgIDFromContext(ctx)
	if !ok {
		return "", ErrMissingOrg
	}
	return orgID, nil
}
