// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
)

// LogSender writes emails to the log instead of sending them. Development only:
// the body contains the reset link.
type LogSender struct {
	logger *slog.Logger
	from   string
}

// NewLogSender returns a LogSender writing to logger, or slog.Default() if nil.
func NewLogSender(logger *slog.Logger, from string) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, from: from}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email_logged",
		"from", s.from,
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
