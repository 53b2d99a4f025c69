package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abgdnv/marketplace/pkg/messaging"
	"github.com/abgdnv/marketplace/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJetStream records published messages. Only Publish is implemented.
type fakeJetStream struct {
	jetstream.JetStream
	subject string
	data    []byte
	err     error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subject = subject
	f.data = data
	return &jetstream.PubAck{Stream: messaging.FavoritesStream, Sequence: 1}, nil
}

type brokenEvent struct{}

func (brokenEvent) Subject() string          { return "broken" }
func (brokenEvent) Payload() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestNatsPublisher_Publish(t *testing.T) {
	// given
	js := &fakeJetStream{}
	publisher := NewNatsPublisher(js)
	event := events.FavoriteToggledEvent{
		UserID:     uuid.New(),
		ProductID:  uuid.New(),
		Action:     events.FavoriteAdded,
		OccurredAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// when
	err := publisher.Publish(context.Background(), event)

	// then
	require.NoError(t, err)
	assert.Equal(t, messaging.FavoriteToggledSubject, js.subject)
	var decoded events.FavoriteToggledEvent
	require.NoError(t, json.Unmarshal(js.data, &decoded))
	assert.Equal(t, event.ProductID, decoded.ProductID)
	assert.Equal(t, events.FavoriteAdded, decoded.Action)
}

func TestNatsPublisher_Errors(t *testing.T) {
	t.Run("payload error", func(t *testing.T) {
		err := NewNatsPublisher(&fakeJetStream{}).Publish(context.Background(), brokenEvent{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot encode")
	})
	t.Run("broker error", func(t *testing.T) {
		js := &fakeJetStream{err: nats.ErrNoResponders}
		err := NewNatsPublisher(js).Publish(context.Background(), events.FavoriteToggledEvent{})
		require.ErrorIs(t, err, nats.ErrNoResponders)
	})
}
