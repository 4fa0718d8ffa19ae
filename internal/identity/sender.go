package identity

import (
	"context"
	"log/slog"
)

// LogCodeSender writes verification codes to the log instead of sending SMS.
// It stands in for a real gateway during local development.
type LogCodeSender struct {
	logger *slog.Logger
}

// NewLogCodeSender constructs a sender that logs codes at info level.
func NewLogCodeSender(logger *slog.Logger) *LogCodeSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogCodeSender{logger: logger}
}

// Send implements CodeSender.
func (s *LogCodeSender) Send(ctx context.Context, phone, code string) error {
	s.logger.InfoContext(ctx, "verification code issued", "phone", phone, "code", code)
	return nil
}
