package chainstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := Run{
		Id:       uuid.NewString(),
		StartUrl: "http://quiz.example.com/q/1",
		Email:    "a@b.c",
		Ok:       true,
		Result:   map[string]any{"correct": true, "score": float64(3)},
		// sqlite keeps unix seconds, truncate to keep comparisons exact
		StartedAt:  time.Now().Truncate(time.Second),
		FinishedAt: time.Now().Add(time.Second * 12).Truncate(time.Second),
	}
	require.NoError(t, store.Record(ctx, run))

	got, err := store.Get(ctx, run.Id)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(run.Result, got.Result))
	require.Equal(t, run.StartUrl, got.StartUrl)
	require.Equal(t, run.Email, got.Email)
	require.True(t, got.Ok)
	require.Equal(t, run.StartedAt.Unix(), got.StartedAt.Unix())
	require.Equal(t, run.FinishedAt.Unix(), got.FinishedAt.Unix())
}

func TestStoreListNewestFirst(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for i, id := range ids {
		require.NoError(t, store.Record(ctx, Run{
			Id:         id,
			StartUrl:   "http://quiz.example.com/q/1",
			Email:      "a@b.c",
			Ok:         i%2 == 0,
			Result:     map[string]any{"correct": false},
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second*30),
		}))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, ids[2], runs[0].Id)
	require.Equal(t, ids[1], runs[1].Id)
}
