package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

func TestShard_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	sh := createTestStore(t).Shard("cars")
	key, rec := createTestRecord("O'Brien", "Corolla")
	rec.Message.Body["year"] = ir.Int(1 << 60)

	require.NoError(t, sh.Put(ctx, key, rec))
	got, err := sh.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, rec.Keyspec.String(), got.Keyspec.String())
	assert.Equal(t, keyspec.CategoryConfig, got.Keyspec.Category)
	assert.Equal(t, key, got.Keyspec.MustKey())
	assert.True(t, rec.Message.Equal(got.Message), "got %v", got.Message)
}

func TestShard_GetAbsent(t *testing.T) {
	sh := createTestStore(t).Shard("cars")
	key, _ := createTestRecord("Toyota")

	got, err := sh.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShard_DeleteReportsPresence(t *testing.T) {
	ctx := context.Background()
	sh := createTestStore(t).Shard("cars")
	key, rec := createTestRecord("Toyota")
	require.NoError(t, sh.Put(ctx, key, rec))

	ok, err := sh.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sh.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShard_ScanOrderAndStop(t *testing.T) {
	ctx := context.Background()
	sh := createTestStore(t).Shard("cars")
	for _, b := range []string{"Toyota", "Honda", "BMW"} {
		key, rec := createTestRecord(b, "x")
		require.NoError(t, sh.Put(ctx, key, rec))
	}
	key, rec := createTestRecord("Toyota", "y")
	require.NoError(t, sh.Put(ctx, key, rec))

	var seen []string
	err := sh.Scan(ctx, func(_ keyspec.Key, r *member.ShardRecord) error {
		seen = append(seen, r.Keyspec.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`/car[brand='Toyota']`, `/car[brand='Honda']`, `/car[brand='BMW']`}, seen)

	stop := errors.New("stop")
	calls := 0
	err = sh.Scan(ctx, func(keyspec.Key, *member.ShardRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestShard_ScanAllowsWrites(t *testing.T) {
	ctx := context.Background()
	sh := createTestStore(t).Shard("cars")
	for _, b := range []string{"Toyota", "Honda"} {
		key, rec := createTestRecord(b)
		require.NoError(t, sh.Put(ctx, key, rec))
	}

	err := sh.Scan(ctx, func(k keyspec.Key, _ *member.ShardRecord) error {
		_, err := sh.Delete(ctx, k)
		return err
	})
	require.NoError(t, err)

	n, err := sh.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestShard_RejectsIncompleteRecord(t *testing.T) {
	sh := createTestStore(t).Shard("cars")
	key, _ := createTestRecord("Toyota")
	assert.Error(t, sh.Put(context.Background(), key, &member.ShardRecord{}))
}
