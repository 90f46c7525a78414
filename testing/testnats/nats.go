package testnats

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedContainer *NATSContainer
	sharedOnce      sync.Once
	sharedMu        sync.Mutex
)

type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts one NATS server per test binary. Tests using it
// cannot run in parallel.
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	sharedOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForListeningPort("4222/tcp"),
		}

		natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err)

		host, err := natsContainer.Host(ctx)
		require.NoError(t, err)

		port, err := natsContainer.MappedPort(ctx, "4222")
		require.NoError(t, err)

		sharedContainer = &NATSContainer{
			Container: natsContainer,
			URL:       "nats://" + host + ":" + port.Port(),
		}
	})

	require.NotNil(t, sharedContainer, "shared NATS container failed to start")
	return sharedContainer
}

func (nc *NATSContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if nc.Container != nil {
		if err := nc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	if sharedContainer == nc {
		sharedContainer = nil
		sharedOnce = sync.Once{}
	}
}

func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

// Subscribe collects messages on subject. The subscription is flushed before
// returning so nothing published afterwards is missed.
func (nc *NATSContainer) Subscribe(t *testing.T, subject string) <-chan *nats.Msg {
	t.Helper()

	conn := nc.Connect(t)
	received := make(chan *nats.Msg, 16)
	_, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	return received
}
