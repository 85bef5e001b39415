package tool

import "context"

// UpdateFunc receives progress messages emitted while a tool runs, such as
// "searching the knowledge base". It is how a tool narrates long operations
// back to the caller.
type UpdateFunc func(ctx context.Context, message string)

type updateKey struct{}

// WithUpdate attaches fn to the context so tools executed under it can report
// progress.
func WithUpdate(ctx context.Context, fn UpdateFunc) context.Context {
	return context.WithValue(ctx, updateKey{}, fn)
}

// Update posts a progress message through the UpdateFunc carried by ctx.
// Without one, the message is dropped.
func Update(ctx context.Context, message string) {
	if fn, ok := ctx.Value(updateKey{}).(UpdateFunc); ok {
		fn(ctx, message)
	}
}
