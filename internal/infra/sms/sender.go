package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/infra/config"
	"github.com/washlytics/tenant-onboarding/internal/infra/logger"
)

const defaultGatewayTimeout = 10 * time.Second

// LogSender writes outbound messages to the application log instead of a
// gateway. The message body is only logged in development environments
// because it carries the verification code.
type LogSender struct {
	logger *zap.Logger
	dev    bool
}

// NewLogSender constructs a development-friendly SMS sender.
func NewLogSender(log *zap.Logger, env string) *LogSender {
	return &LogSender{logger: log, dev: env == "development" || env == "dev" || env == "local"}
}

func (s *LogSender) Send(_ context.Context, message port.SMSMessage) error {
	fields := []zap.Field{
		zap.String("to", logger.MaskPhone(message.To)),
	}
	if s.dev {
		fields = append(fields, zap.String("body", message.Body))
	}

	s.logger.Info("SMS delivery (log sender)", fields...)
	return nil
}

// GatewaySender delivers messages through an HTTP SMS gateway.
type GatewaySender struct {
	gatewayURL string
	apiKey     string
	senderID   string
	client     *http.Client
	logger     *zap.Logger
}

// NewGatewaySender constructs an HTTP gateway backed sender from configuration.
func NewGatewaySender(cfg config.SMSSettings, log *zap.Logger) *GatewaySender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	return &GatewaySender{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		client:     &http.Client{Timeout: timeout},
		logger:     log,
	}
}

type gatewayRequest struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

func (s *GatewaySender) Send(ctx context.Context, message port.SMSMessage) error {
	payload, err := json.Marshal(gatewayRequest{
		To:     message.To,
		Body:   message.Body,
		Sender: s.senderID,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("sms gateway rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", logger.MaskPhone(message.To)),
			zap.ByteString("response", body),
		)
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("SMS dispatched",
		zap.String("to", logger.MaskPhone(message.To)),
	)
	return nil
}

var (
	_ port.SMSSender = (*LogSender)(nil)
	_ port.SMSSender = (*GatewaySender)(nil)
)
