package notify

import (
	"context"
	"log/slog"
)

// LogNotifier only writes a structured log line per event.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.logger.InfoContext(ctx, "submission_notification",
		"kind", string(ev.Kind),
		"submission_id", ev.Submission.ID,
		"company_name", ev.Submission.CompanyName,
	)
	return nil
}
