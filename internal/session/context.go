package session

import (
	"context"

	"spensagi/portal/internal/model"
)

type identityKey struct{}

type sharedKey struct{}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, identity)
	return context.WithValue(ctx, sharedKey{}, identity.Shared())
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	return identity, ok
}

func SharedFromContext(ctx context.Context) (model.Shared, bool) {
	shared, ok := ctx.Value(sharedKey{}).(model.Shared)
	return shared, ok
}
