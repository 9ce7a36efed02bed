package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-baseline/pkg/machine"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

func trainedMachine(t *testing.T) *machine.Machine {
	t.Helper()

	profile, err := models.NewProfile("64502", "NL", 4, 6, map[int]int{2: 1},
		[]string{"198.51.100.0/24"}, []string{"64500"})
	require.NoError(t, err)

	m := machine.New(machine.DefaultConfig())
	m.Train([]*mrt.Snapshot{{
		FilePath:  "rib.20131101.1200.bz2",
		Timestamp: time.Date(2013, 11, 1, 12, 0, 0, 0, time.UTC),
		ASMap:     map[string]*models.Profile{profile.ID: profile},
	}})
	return m
}

func roundTrip(t *testing.T, s ModelStore) {
	t.Helper()
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.Save(ctx, "one_month", trainedMachine(t)))

	names, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one_month"}, names)

	loaded, err := s.Load(ctx, "one_month")
	require.NoError(t, err)
	require.Contains(t, loaded.TrainData, "64502")
	assert.Contains(t, loaded.TrainData["64502"].Neighbours, "64500")

	_, err = s.Load(ctx, "absent")
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	roundTrip(t, NewRedisStore(client))
}

func TestFileStore_ListSorted(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "two_weeks", trainedMachine(t)))
	require.NoError(t, s.Save(ctx, "one_month", trainedMachine(t)))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one_month", "two_weeks"}, names)
}
