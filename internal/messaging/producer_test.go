package messaging_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	commonmetrics "student-manager/common/metrics"
	"student-manager/internal/events"
	"student-manager/internal/messaging"
	"student-manager/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerWithNATSContainer(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Publish_UsesTypeSubject", func(t *testing.T) {
		subject := "test." + strings.ReplaceAll(t.Name(), "/", ".")

		producer, err := messaging.NewProducer(natsContainer.URL, subject, logger, commonmetrics.NewMock())
		require.NoError(t, err)
		defer producer.Close()

		received := natsContainer.Subscribe(t, subject+".>")

		event := events.New(events.PointCreated, "point-1", "session-1")
		require.NoError(t, producer.Publish(context.Background(), event))

		select {
		case msg := <-received:
			assert.Equal(t, subject+".point.created", msg.Subject)

			var got events.Event
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, events.PointCreated, got.Type)
			assert.Equal(t, "point-1", got.EntityID)
			assert.Equal(t, "session-1", got.RelatedID)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("Connect_InvalidURL", func(t *testing.T) {
		_, err := messaging.NewProducer("nats://127.0.0.1:1", "test.invalid", logger, commonmetrics.NewMock())
		assert.Error(t, err)
	})
}
