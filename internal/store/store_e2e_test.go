//go:build e2e

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/go-dnp3/dnp3master/internal/store"
)

// TestStorePostgresBackend exercises the golang-migrate schema path against
// a real Postgres instance, grounded on
// `_examples/marmos91-dittofs/test/e2e/framework/containers.go`'s
// testcontainers-go postgres module usage.
func TestStorePostgresBackend(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dnp3master_e2e"),
		postgres.WithUsername("dnp3master_e2e"),
		postgres.WithPassword("dnp3master_e2e"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.Open(store.Config{Backend: store.BackendPostgres, PostgresDSN: dsn})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveChannel(store.ChannelRecord{
		Name: "plant-a", Kind: "tcp", Endpoints: "10.0.0.1:20000", TxBufferSize: 2048, RxBufferSize: 2048,
	}))
	require.NoError(t, s.SaveAssociation(store.AssociationRecord{
		ChannelName: "plant-a", Address: 1024, AutoTimeSync: "non_lan",
	}))

	channels, err := s.ListChannels()
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "plant-a", channels[0].Name)

	assocs, err := s.ListAssociations("plant-a")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	require.EqualValues(t, 1024, assocs[0].Address)

	require.NoError(t, s.DeleteAssociation("plant-a", 1024))
	assocs, err = s.ListAssociations("plant-a")
	require.NoError(t, err)
	require.Empty(t, assocs)
}
