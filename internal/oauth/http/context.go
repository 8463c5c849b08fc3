package http

import (
	"context"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

type applicationKey struct{}

// WithApplication stores the authenticated application in the context.
func WithApplication(ctx context.Context, app *oauthDomain.Application) context.Context {
	return context.WithValue(ctx, applicationKey{}, app)
}

// GetApplication returns the application stored by ClientAuthenticationMiddleware.
func GetApplication(ctx context.Context) (*oauthDomain.Application, bool) {
	app, ok := ctx.Value(applicationKey{}).(*oauthDomain.Application)
	return app, ok
}
