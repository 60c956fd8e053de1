package mail

import (
	"context"

	"github.com/surdiana/auth-service/pkg/logger"
	"go.uber.org/zap"
)

// LogMailer writes outbound mail to the log instead of delivering it.
// Used in development and when no mail provider is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendMail(_ context.Context, e *Email) error {
	logger.GetLogger().Info("Mail delivery skipped, provider disabled",
		zap.Strings("to", e.To),
		zap.String("subject", e.Subject),
	)
	return nil
}
