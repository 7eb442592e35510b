// Package events publishes document lifecycle events to NATS so downstream
// consumers can react to ingest and delete activity. Publishing is fire and
// forget: failures are logged, never surfaced to the HTTP caller.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// NATS subjects for document lifecycle events.
const (
	SubjectIngested = "semcache.documents.ingested"
	SubjectDeleted  = "semcache.documents.deleted"
	SubjectCleared  = "semcache.collection.cleared"
)

// DocumentEvent is the payload for ingest and delete events.
type DocumentEvent struct {
	IDs []string  `json:"ids"`
	At  time.Time `json:"at"`
}

// ClearEvent is the payload for a collection clear.
type ClearEvent struct {
	At time.Time `json:"at"`
}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(*nats.Msg) error
}

// Publisher emits lifecycle events. A nil Publisher or one built without a
// connection is a no-op, so callers never need to branch on configuration.
type Publisher struct {
	nc  conn
	log *slog.Logger
}

// NewPublisher wraps a NATS connection. Pass nil to disable publishing.
func NewPublisher(nc *nats.Conn, log *slog.Logger) *Publisher {
	if nc == nil {
		return &Publisher{log: log}
	}
	return &Publisher{nc: nc, log: log}
}

func newWithConn(nc conn, log *slog.Logger) *Publisher {
	return &Publisher{nc: nc, log: log}
}

// DocumentsIngested reports newly stored document ids.
func (p *Publisher) DocumentsIngested(ctx context.Context, ids []string) {
	p.publish(ctx, SubjectIngested, DocumentEvent{IDs: ids, At: time.Now().UTC()})
}

// DocumentsDeleted reports removed document ids.
func (p *Publisher) DocumentsDeleted(ctx context.Context, ids []string) {
	p.publish(ctx, SubjectDeleted, DocumentEvent{IDs: ids, At: time.Now().UTC()})
}

// CollectionCleared reports that the whole collection was dropped.
func (p *Publisher) CollectionCleared(ctx context.Context) {
	p.publish(ctx, SubjectCleared, ClearEvent{At: time.Now().UTC()})
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.logErr(subject, err)
		return
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		p.logErr(subject, err)
	}
}

func (p *Publisher) logErr(subject string, err error) {
	log := p.log
	if log == nil {
		log = slog.Default()
	}
	log.Error("event publish failed", "subject", subject, "error", err)
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
