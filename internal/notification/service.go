package notification

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Service subscribes to the Gmail watch topic and feeds every message to a
// Handler.
type Service struct {
	client    *pubsub.Client
	handler   *Handler
	topicName string
	subName   string
	logger    *zap.Logger
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, handler *Handler, logger *zap.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		client:    client,
		handler:   handler,
		topicName: topicName,
		subName:   topicName + "-sub",
		logger:    logger.Named("pubsub"),
	}, nil
}

// subscription returns the push subscription, creating it on first run.
func (s *Service) subscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.client.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", s.topicName)
	}

	sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.logger.Info("created subscription", zap.String("subscription", s.subName))
	return sub, nil
}

// Run blocks receiving messages until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sub, err := s.subscription(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("listening", zap.String("topic", s.topicName), zap.String("subscription", s.subName))
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		out, err := s.handler.Handle(ctx, msg.Data)
		if err != nil {
			s.logger.Error("handle notification", zap.String("message_id", msg.ID), zap.Error(err))
			msg.Nack()
			return
		}
		if out.Skipped != "" {
			s.logger.Debug("notification skipped", zap.String("message_id", msg.ID), zap.String("reason", out.Skipped))
		}
		msg.Ack()
	})
}

func (s *Service) Close() error {
	return s.client.Close()
}
