package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-hierarchy/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	if ctx == nil {
		return
	}
	logger, ok := composables.UseLogger(ctx)
	if !ok {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}
