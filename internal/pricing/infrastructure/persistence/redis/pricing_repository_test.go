package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/cache"
)

func TestPricingResultCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewPricingResultCache(cache.NewFromClient(client))
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "bs:intrinsic:call:100")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &domain.PricingResult{
		TheoreticalPrice: 3.6115602906039186,
		Greeks:           domain.Greeks{Delta: 0.5342697035912677, Theta: -0.06311710300885807},
		Model:            domain.ModelBlackScholes,
	}
	require.NoError(t, c.Set(ctx, "bs:intrinsic:call:100", want, time.Minute))
	assert.True(t, mr.Exists("pricing_result:bs:intrinsic:call:100"))

	got, ok, err := c.Get(ctx, "bs:intrinsic:call:100")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *want, *got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "bs:intrinsic:call:100")
	require.NoError(t, err)
	assert.False(t, ok)
}
