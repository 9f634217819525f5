package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (r *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	r.keys = append(r.keys, routingKey)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestPublishAfterCommit_SwallowsErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("broker down")}

	assert.NotPanics(t, func() {
		PublishAfterCommit(context.Background(), p, "refund.completed", map[string]string{"id": "r1"})
	})
	assert.Equal(t, []string{"refund.completed"}, p.keys)
}

func TestPublishAfterCommit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishAfterCommit(context.Background(), nil, "reservation.confirmed", nil)
	})
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "reservation.cancelled", nil))
	assert.NoError(t, p.Close())
}
