package notify

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type EmailTransport struct {
	baseURL string
	apiKey  string
	from    string
	subject string
	client  *http.Client
	logger  *zap.Logger
}

func NewEmailTransport(logger *zap.Logger) *EmailTransport {
	return &EmailTransport{
		baseURL: getEnv("EMAIL_API_URL", "http://localhost:9002/v1/mail/send"),
		apiKey:  getEnv("EMAIL_API_KEY", ""),
		from:    getEnv("EMAIL_FROM", "revenue@amac.gov.ng"),
		subject: getEnv("EMAIL_SUBJECT", "Payment Notice"),
		client:  newHTTPClient(),
		logger:  logger,
	}
}

func (t *EmailTransport) Name() string { return ChannelEmail }

func (t *EmailTransport) Send(ctx context.Context, destination, message string) error {
	payload := map[string]string{
		"to":      destination,
		"from":    t.from,
		"subject": t.subject,
		"body":    message,
	}

	if err := postJSON(ctx, t.client, t.baseURL, t.apiKey, payload); err != nil {
		return err
	}

	t.logger.Info("Email sent", zap.String("to", destination))
	return nil
}
