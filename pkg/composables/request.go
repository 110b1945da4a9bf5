package composables

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-hierarchy/pkg/constants"
)

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context.
// If no logger is attached, the second return value will be false.
func UseLogger(ctx context.Context) (*logrus.Entry, bool) {
	switch typed := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return typed, typed != nil
	case *logrus.Logger:
		if typed == nil {
			return nil, false
		}
		return logrus.NewEntry(typed), true
	default:
		return nil, false
	}
}

// WithRunID tags the context with the id of the current export run.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.RunIDKey, id)
}

// UseRunID returns the run id, or uuid.Nil when none is set.
func UseRunID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(constants.RunIDKey).(uuid.UUID)
	return id
}
