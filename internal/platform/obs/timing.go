package obs

import (
	"context"
	"log/slog"
	"signal-simulation-service/internal/platform/logging"
	"time"
)

// Time logs the duration of an operation. Use as:
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		log := logging.FromContext(ctx)
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "op failed",
				slog.String("op", name),
				slog.Int64("dur_ms", dur.Milliseconds()),
				slog.String("err", (*errp).Error()),
			)
			return
		}
		log.LogAttrs(ctx, slog.LevelDebug, "op done",
			slog.String("op", name),
			slog.Int64("dur_ms", dur.Milliseconds()),
		)
	}
}
