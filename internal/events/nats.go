package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/slug"
)

const defaultTimeout = 5 * time.Second

// NATSOptions configures a NATSPublisher.
type NATSOptions struct {
	URL     string
	Subject string
	// JetStream publishes through JetStream and waits for the stream ack.
	JetStream bool
	// KVBucket, when set with JetStream, stores the latest event per catalog.
	KVBucket string
	Timeout  time.Duration
	// Name identifies the connection on the server.
	Name   string
	Logger *slog.Logger
}

// NATSPublisher publishes BuildCompleted events as JSON. The connection is
// opened on first use and kept for later builds.
type NATSPublisher struct {
	opts   NATSOptions
	logger *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	js   jetstream.JetStream
	kv   jetstream.KeyValue
}

// NewNATSPublisher validates opts and returns a publisher. No connection is
// made until the first event.
func NewNATSPublisher(opts NATSOptions) (*NATSPublisher, error) {
	if opts.URL == "" {
		return nil, ferrors.ConfigError("NATS url is required").Build()
	}
	if opts.Subject == "" {
		return nil, ferrors.ConfigError("NATS subject is required").Build()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Name == "" {
		opts.Name = "catalogbuilder"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &NATSPublisher{opts: opts, logger: opts.Logger}, nil
}

// PublishBuildCompleted sends ev on the configured subject.
func (p *NATSPublisher) PublishBuildCompleted(ctx context.Context, ev BuildCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return ferrors.InternalError("failed to marshal build event").WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(ctx); err != nil {
		return err
	}

	if p.js != nil {
		if _, err := p.js.Publish(ctx, p.opts.Subject, data); err != nil {
			return p.publishError(err)
		}
		if p.kv != nil {
			if _, err := p.kv.Put(ctx, slug.Normalize(ev.Catalog), data); err != nil {
				p.logger.Warn("Failed to store latest build event", logfields.Error(err))
			}
		}
	} else {
		if err := p.conn.Publish(p.opts.Subject, data); err != nil {
			return p.publishError(err)
		}
		if err := p.conn.FlushWithContext(ctx); err != nil {
			return p.publishError(err)
		}
	}

	p.logger.Debug("Published build event",
		logfields.Subject(p.opts.Subject),
		logfields.BuildID(ev.BuildID),
		logfields.Outcome(ev.Outcome))
	return nil
}

func (p *NATSPublisher) connect(ctx context.Context) error {
	if p.conn != nil && !p.conn.IsClosed() {
		return nil
	}
	conn, err := nats.Connect(p.opts.URL,
		nats.Name(p.opts.Name),
		nats.Timeout(p.opts.Timeout),
	)
	if err != nil {
		return ferrors.EventsError("failed to connect to NATS").WithCause(err).
			WithContext("url", p.opts.URL).Build()
	}
	p.conn = conn
	p.js, p.kv = nil, nil
	if !p.opts.JetStream {
		return nil
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		p.conn = nil
		return ferrors.EventsError("failed to create JetStream context").WithCause(err).Build()
	}
	p.js = js
	if p.opts.KVBucket != "" {
		p.kv = p.keyValue(ctx)
	}
	return nil
}

// keyValue opens or creates the status bucket. A missing bucket only
// disables status storage.
func (p *NATSPublisher) keyValue(ctx context.Context) jetstream.KeyValue {
	kv, err := p.js.KeyValue(ctx, p.opts.KVBucket)
	if err == nil {
		return kv
	}
	kv, err = p.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      p.opts.KVBucket,
		Description: "Latest catalogbuilder build per catalog",
		History:     1,
	})
	if err != nil {
		p.logger.Warn("Failed to open build status bucket", logfields.Error(err))
		return nil
	}
	return kv
}

func (p *NATSPublisher) publishError(err error) error {
	return ferrors.EventsError("failed to publish build event").WithCause(err).
		WithContext("subject", p.opts.Subject).Build()
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	p.js, p.kv = nil, nil
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return ferrors.EventsError("failed to close NATS connection").WithCause(err).Build()
	}
	return nil
}
