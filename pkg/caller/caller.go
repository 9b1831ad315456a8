// Package caller carries the authenticated account of a request.
package caller

import (
	"context"

	"kudos-controlplane/pkg/errutil"
)

type accountKey struct{}

func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// FromContext returns the caller account and whether one is present.
func FromContext(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey{}).(string)
	return account, ok && account != ""
}

// Require returns the caller account or an Unauthorized error.
func Require(ctx context.Context) (string, error) {
	account, ok := FromContext(ctx)
	if !ok {
		return "", errutil.Unauthorized("caller identity required", nil)
	}
	return account, nil
}
