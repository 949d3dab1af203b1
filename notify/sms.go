package notify

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type SMSGateway struct {
	baseURL  string
	apiKey   string
	senderID string
	client   *http.Client
	logger   *zap.Logger
}

func NewSMSGateway(logger *zap.Logger) *SMSGateway {
	return &SMSGateway{
		baseURL:  getEnv("SMS_GATEWAY_URL", "http://localhost:9001/v1/sms"),
		apiKey:   getEnv("SMS_GATEWAY_API_KEY", ""),
		senderID: getEnv("SMS_SENDER_ID", "AMAC-REV"),
		client:   newHTTPClient(),
		logger:   logger,
	}
}

func (g *SMSGateway) Name() string { return ChannelSMS }

func (g *SMSGateway) Send(ctx context.Context, destination, message string) error {
	payload := map[string]string{
		"to":      destination,
		"from":    g.senderID,
		"message": message,
	}

	if err := postJSON(ctx, g.client, g.baseURL, g.apiKey, payload); err != nil {
		return err
	}

	g.logger.Info("SMS sent", zap.String("to", destination))
	return nil
}
