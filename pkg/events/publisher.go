// Package events publishes sync completions to NATS JetStream so other
// services can react to fresh mail, events and tasks.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	StreamName    = "PRIVATEZONE_SYNC"
	subjectPrefix = "privatezone"
)

// SyncEvent describes one finished sync run.
type SyncEvent struct {
	UserID   string    `json:"user_id"`
	Kind     string    `json:"kind"` // mail, calendar, tasks
	Synced   int       `json:"synced"`
	Fetched  int       `json:"fetched"`
	Failed   int       `json:"failed"`
	Stored   int       `json:"attachments_stored,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// Subject is privatezone.<user>.<kind>.synced.
func (e SyncEvent) Subject() string {
	return fmt.Sprintf("%s.%s.%s.synced", subjectPrefix, e.UserID, e.Kind)
}

// MsgID lets JetStream drop a duplicate publish of the same run.
func (e SyncEvent) MsgID() string {
	return fmt.Sprintf("%s:%s:%d", e.UserID, e.Kind, e.SyncedAt.UnixNano())
}

type Publisher interface {
	PublishSync(ctx context.Context, ev SyncEvent) error
	Close()
}

// Nop discards every event. Used when NATS_URL is empty.
type Nop struct{}

func (Nop) PublishSync(context.Context, SyncEvent) error { return nil }
func (Nop) Close()                                       {}

type JetStream struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewJetStream connects to url and makes sure the sync stream exists.
func NewJetStream(url string, logger *zap.Logger) (*JetStream, error) {
	nc, err := nats.Connect(url, nats.Name("privatezone-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	p := &JetStream{nc: nc, js: js, logger: logger.Named("events")}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *JetStream) ensureStream() error {
	if info, err := p.js.StreamInfo(StreamName); err == nil && info != nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{subjectPrefix + ".*.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func (p *JetStream) PublishSync(ctx context.Context, ev SyncEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sync event: %w", err)
	}

	if _, err := p.js.Publish(ev.Subject(), payload, nats.MsgId(ev.MsgID()), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug("sync event published", zap.String("subject", ev.Subject()))
	return nil
}

func (p *JetStream) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
