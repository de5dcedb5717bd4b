package common

import "context"

type ctxKey string

const staffIDKey ctxKey = "auth/staff-id"

// WithStaffID stores the authenticated staff identifier on the context.
func WithStaffID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, staffIDKey, id)
}

// StaffID extracts the authenticated staff identifier from the context.
func StaffID(ctx context.Context) (string, bool) {
	v := ctx.Value(staffIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
