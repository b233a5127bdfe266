package events

import (
	"context"
	"errors"
)

// Publisher delivers build notifications.
type Publisher interface {
	PublishBuildCompleted(ctx context.Context, ev BuildCompleted) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBuildCompleted(context.Context, BuildCompleted) error { return nil }
func (NoopPublisher) Close() error                                               { return nil }

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
