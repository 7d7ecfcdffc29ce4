// Package fcm sends push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const webIcon = "/icon-192.svg"

// Sender delivers one notification to many devices and returns the tokens
// FCM rejected, so callers can prune them.
type Sender interface {
	SendToDevices(ctx context.Context, tokens []string, n NotificationData) ([]string, error)
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

type Client struct {
	messaging *messaging.Client
	logger    *zap.Logger
}

var _ Sender = (*Client)(nil)

// NewClient creates an FCM client. An empty credentials file falls back to
// application default credentials.
func NewClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	logger = logger.Named("fcm")
	logger.Info("client initialized")
	return &Client{messaging: mc, logger: logger}, nil
}

func multicast(tokens []string, n NotificationData) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.ImageURL,
		},
		Data: n.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: n.Title,
				Body:  n.Body,
				Icon:  webIcon,
			},
		},
	}
}

// failedTokens lines up per-token responses with the tokens they belong to.
func failedTokens(tokens []string, responses []*messaging.SendResponse) []string {
	var failed []string
	for i, resp := range responses {
		if i < len(tokens) && !resp.Success {
			failed = append(failed, tokens[i])
		}
	}
	return failed
}

// SendToDevices sends a push notification to multiple device tokens
func (c *Client) SendToDevices(ctx context.Context, tokens []string, n NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	br, err := c.messaging.SendEachForMulticast(ctx, multicast(tokens, n))
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	failed := failedTokens(tokens, br.Responses)
	c.logger.Debug("multicast sent",
		zap.Int("success", br.SuccessCount),
		zap.Int("failure", br.FailureCount))
	for i, resp := range br.Responses {
		if !resp.Success {
			c.logger.Warn("device rejected notification", zap.Int("index", i), zap.Error(resp.Error))
		}
	}
	return failed, nil
}
