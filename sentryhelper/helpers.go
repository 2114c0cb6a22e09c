// Package sentryhelper keeps Sentry scope isolated per request or CLI
// command by carrying a cloned hub in the context.
package sentryhelper

import (
	"context"

	sentry "github.com/getsentry/sentry-go"
)

// contextKey is used to store the cloned hub in context
type contextKey string

const hubContextKey contextKey = "sentry_hub"

// StartTransaction clones the current hub into ctx and starts a transaction
// bound to it. Breadcrumbs and tags recorded under the returned context stay
// on that hub.
func StartTransaction(ctx context.Context, name string, op string, tags map[string]string) (context.Context, *sentry.Span) {
	hub := sentry.CurrentHub().Clone()
	ctx = context.WithValue(ctx, hubContextKey, hub)

	transaction := sentry.StartTransaction(ctx, name,
		sentry.WithOpName(op),
		sentry.WithTransactionSource(sentry.SourceRoute),
	)
	for k, v := range tags {
		transaction.SetTag(k, v)
	}

	hub.Scope().SetSpan(transaction)

	return transaction.Context(), transaction
}

// WithHub attaches an existing hub, e.g. the one sentrygin puts on the
// request, to ctx.
func WithHub(ctx context.Context, hub *sentry.Hub) context.Context {
	if hub == nil {
		return ctx
	}
	return context.WithValue(ctx, hubContextKey, hub)
}

// HubFromContext retrieves the cloned hub from context.
// Falls back to CurrentHub if no cloned hub is found.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if hub, ok := ctx.Value(hubContextKey).(*sentry.Hub); ok && hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func AddBreadcrumb(ctx context.Context, breadcrumb *sentry.Breadcrumb) {
	HubFromContext(ctx).AddBreadcrumb(breadcrumb, nil)
}

func CaptureException(ctx context.Context, err error) *sentry.EventID {
	return HubFromContext(ctx).CaptureException(err)
}

// CaptureMessage is for warnings that are not errors.
func CaptureMessage(ctx context.Context, message string) *sentry.EventID {
	return HubFromContext(ctx).CaptureMessage(message)
}

// DetachFromTransaction keeps the hub but drops the request's transaction
// and cancellation. Use it for work that outlives the request.
func DetachFromTransaction(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), hubContextKey, HubFromContext(ctx))
}
