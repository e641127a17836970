package kvcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/testutil"
)

func key(brand string) keyspec.Key {
	return keyspec.New(keyspec.CategoryConfig, keyspec.Entry("car", keyspec.K("brand", ir.String(brand)))).MustKey()
}

func TestCache_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New("cars", 0, 0, testutil.DiscardLogger())

	value := []byte(`{"models":["Corolla"]}`)
	require.NoError(t, c.Put(ctx, key("Toyota"), value))
	value[0] = 'X'

	got, ok := c.Get(ctx, key("Toyota"))
	require.True(t, ok)
	assert.Equal(t, `{"models":["Corolla"]}`, string(got), "cache keeps its own copy")

	require.NoError(t, c.Delete(ctx, key("Toyota")))
	_, ok = c.Get(ctx, key("Toyota"))
	assert.False(t, ok)
}

func TestCache_KeysSorted(t *testing.T) {
	ctx := context.Background()
	c := New("cars", 0, 0, nil)
	for _, b := range []string{"Toyota", "BMW", "Honda"} {
		require.NoError(t, c.Put(ctx, key(b), []byte(`{}`)))
	}
	keys := c.Keys()
	require.Len(t, keys, 3)
	assert.True(t, keys[0] < keys[1] && keys[1] < keys[2])
	assert.Equal(t, 3, c.Len())

	c.Flush()
	assert.Zero(t, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New("cars", 20*time.Millisecond, time.Hour, nil)
	require.NoError(t, c.Put(ctx, key("Toyota"), []byte(`{}`)))

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, key("Toyota"))
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTee_WritesEveryMirror(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemKV()
	cache := New("cars", 0, 0, nil)
	failing := testutil.NewMemKV()
	failing.FailNext()

	tee := Tee{failing, mem, cache}
	err := tee.Put(ctx, key("Toyota"), []byte(`{}`))
	assert.ErrorIs(t, err, testutil.ErrInjected)

	_, ok := mem.Get(key("Toyota"))
	assert.True(t, ok, "later mirrors are still written")
	_, ok = cache.Get(ctx, key("Toyota"))
	assert.True(t, ok)

	require.NoError(t, tee.Delete(ctx, key("Toyota")))
	assert.Zero(t, mem.Len())
}

func TestCache_AsMemberMirror(t *testing.T) {
	ctx := context.Background()
	cache := New("cars", 0, 0, nil)
	c := member.NewClient(member.WithLogger(testutil.DiscardLogger()))
	reg, err := c.Register(keyspec.MustParse(`/car[brand=*]`, keyspec.CategoryConfig), "Car",
		member.FlagPublisher|member.FlagCache, member.WithKV(cache))
	require.NoError(t, err)

	ref := member.AtKeys("car", keyspec.K("brand", ir.String("Toyota")))
	require.NoError(t, c.Create(ctx, nil, reg, ref, ir.NewMessage("Car", ir.F("models", ir.Strings("Corolla")))))

	got, ok := cache.Get(ctx, key("Toyota"))
	require.True(t, ok)
	assert.Equal(t, `{"models":["Corolla"]}`, string(got))
}
