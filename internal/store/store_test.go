package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/internal/store"
)

func TestStoreSQLiteRoundTrip(t *testing.T) {
	s, err := store.Open(store.Config{
		Backend:    store.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "associations.db"),
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveChannel(store.ChannelRecord{
		Name: "substation-1", Kind: "tcp", Endpoints: "127.0.0.1:20000", TxBufferSize: 2048, RxBufferSize: 2048,
	}))
	require.NoError(t, s.SaveAssociation(store.AssociationRecord{
		ChannelName: "substation-1", Address: 1, AutoTimeSync: "lan", EnableUnsolicited: true,
	}))
	require.NoError(t, s.SaveAssociation(store.AssociationRecord{
		ChannelName: "substation-1", Address: 2, AutoTimeSync: "none",
	}))

	channels, err := s.ListChannels()
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "substation-1", channels[0].Name)
	require.Equal(t, "tcp", channels[0].Kind)

	assocs, err := s.ListAssociations("substation-1")
	require.NoError(t, err)
	require.Len(t, assocs, 2)

	require.NoError(t, s.DeleteAssociation("substation-1", 1))
	assocs, err = s.ListAssociations("substation-1")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	require.EqualValues(t, 2, assocs[0].Address)
}

func TestStoreSQLiteSaveUpsert(t *testing.T) {
	s, err := store.Open(store.Config{
		Backend:    store.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "associations.db"),
	})
	require.NoError(t, err)
	defer s.Close()

	rec := store.ChannelRecord{Name: "ch", Kind: "tcp", Endpoints: "a:1", TxBufferSize: 1024, RxBufferSize: 1024}
	require.NoError(t, s.SaveChannel(rec))

	rec.Endpoints = "a:1,b:2"
	require.NoError(t, s.SaveChannel(rec))

	channels, err := s.ListChannels()
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "a:1,b:2", channels[0].Endpoints)
}
