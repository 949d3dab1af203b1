package notify

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// WhatsAppTransport talks to the WhatsApp Business messages API.
type WhatsAppTransport struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func NewWhatsAppTransport(logger *zap.Logger) *WhatsAppTransport {
	return &WhatsAppTransport{
		baseURL: getEnv("WHATSAPP_API_URL", "http://localhost:9003/v17.0/messages"),
		token:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		client:  newHTTPClient(),
		logger:  logger,
	}
}

func (t *WhatsAppTransport) Name() string { return ChannelWhatsApp }

func (t *WhatsAppTransport) Send(ctx context.Context, destination, message string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                destination,
		"type":              "text",
		"text":              map[string]string{"body": message},
	}

	if err := postJSON(ctx, t.client, t.baseURL, t.token, payload); err != nil {
		return err
	}

	t.logger.Info("WhatsApp message sent", zap.String("to", destination))
	return nil
}
