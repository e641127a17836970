package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/testutil"
)

func toyota() member.KeyRef {
	return member.AtKeys("car", keyspec.K("brand", ir.String("Toyota")))
}

func TestMemberMirrorsToSQLite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	kv := s.KV("cars")

	c := member.NewClient(member.WithLogger(testutil.DiscardLogger()))
	reg, err := c.Register(keyspec.MustParse(`/car[brand=*]`, keyspec.CategoryConfig), "Car",
		member.FlagPublisher|member.FlagCache, member.WithKV(kv))
	require.NoError(t, err)

	require.NoError(t, c.Create(ctx, nil, reg, toyota(), ir.NewMessage("Car", ir.F("models", ir.Strings("Corolla")))))
	entries, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `{"models":["Corolla"]}`, entries[0].Value)

	require.NoError(t, c.Delete(ctx, nil, reg, toyota(), nil))
	entries, err = kv.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemberShardOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	c := member.NewClient(member.WithLogger(testutil.DiscardLogger()))
	reg, err := c.Register(keyspec.MustParse(`/car[brand=*]`, keyspec.CategoryConfig), "Car",
		member.FlagPublisher|member.FlagDatastore, member.WithShard(s.Shard("cars")))
	require.NoError(t, err)

	require.NoError(t, c.Create(ctx, nil, reg, toyota(), ir.NewMessage("Car", ir.F("models", ir.Strings("Corolla")))))
	require.NoError(t, c.Update(ctx, nil, reg, toyota(), ir.NewMessage("Car", ir.F("models", ir.Strings("Camry"))), 0))

	item, err := c.Get(ctx, nil, reg, toyota())
	require.NoError(t, err)
	assert.Equal(t, ir.Strings("Corolla", "Camry"), item.Message.Body["models"])

	// A second client reattaching to the same shard sees the objects.
	c2 := member.NewClient(member.WithLogger(testutil.DiscardLogger()))
	reg2, err := c2.Register(keyspec.MustParse(`/car[brand=*]`, keyspec.CategoryConfig), "Car",
		member.FlagSubscriber, member.WithShard(s.Shard("cars")))
	require.NoError(t, err)
	item, err = c2.GetNext(ctx, reg2, member.NewCursor(reg2))
	require.NoError(t, err)
	assert.Equal(t, `/car[brand='Toyota']`, item.Keyspec.String())
}
