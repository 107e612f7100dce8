package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
)

type txKey struct{}

type fakeRepo struct {
	mu       sync.Mutex
	records  []*domain.PricingRecord
	saveErr  error
	gotLimit int
}

func (r *fakeRepo) Save(ctx context.Context, rec *domain.PricingRecord) error {
	if ctx.Value(txKey{}) == nil {
		return errors.New("save outside transaction")
	}
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uint(len(r.records) + 1)
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRepo) GetLatest(_ context.Context, symbol string) (*domain.PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Symbol == symbol {
			return r.records[i], nil
		}
	}
	return nil, domain.ErrResultNotFound
}

func (r *fakeRepo) GetHistory(_ context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gotLimit = limit
	var out []*domain.PricingRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].Symbol == symbol {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(context.WithValue(ctx, txKey{}, true))
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string]domain.PricingResult
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[string]domain.PricingResult{}} }

func (c *fakeCache) Get(_ context.Context, key string) (*domain.PricingResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, r *domain.PricingResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = *r
	return nil
}

type published struct {
	topic string
	event domain.Event
	inTx  bool
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, event: e, inTx: ctx.Value(txKey{}) != nil})
	return nil
}

func (p *fakePublisher) byType(t string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.event.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func atmCall() PriceOptionCommand {
	return PriceOptionCommand{
		Symbol:          "AAPL",
		OptionType:      "call",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    30.0 / 365,
		RiskFreeRate:    0.045,
		Volatility:      0.3,
	}
}

func defaultOpts() CommandOptions {
	return CommandOptions{BatchConcurrency: 4, BatchMaxSize: 10, PriceDecimals: 2, GreekDecimals: 4, EventTopic: "pricing-events"}
}

func TestPriceOptionWithoutInfrastructure(t *testing.T) {
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, defaultOpts())

	out, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.InDelta(t, 3.6115602906039186, out.Result.TheoreticalPrice, 1e-9)
	assert.Equal(t, domain.OptionTypeCall, out.Contract.Type)
}

func TestPriceOptionInvalidPublishesFailure(t *testing.T) {
	m := metrics.New("apptest")
	pub := &fakePublisher{}
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, pub, m, defaultOpts())

	cmd := atmCall()
	cmd.StrikePrice = -10
	out, err := svc.PriceOption(context.Background(), cmd)
	assert.Nil(t, out)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)

	failed := pub.byType(domain.PricingFailedEventType)
	require.Len(t, failed, 1)
	assert.Equal(t, "strike_price", failed[0].event.(domain.PricingFailedEvent).Field)
	assert.Empty(t, pub.byType(domain.OptionPricedEventType))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingRequestsTotal.WithLabelValues("unknown", "invalid")))
}

func TestPriceOptionUnknownType(t *testing.T) {
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, defaultOpts())

	cmd := atmCall()
	cmd.OptionType = "straddle"
	_, err := svc.PriceOption(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestPriceOptionUsesCache(t *testing.T) {
	m := metrics.New("apptest")
	cache := newFakeCache()
	opts := defaultOpts()
	opts.CacheTTL = time.Minute
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, cache, nil, m, opts)

	first, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result, second.Result)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingCacheTotal.WithLabelValues("miss")))
}

func TestCacheKeyIncludesPolicy(t *testing.T) {
	c, err := atmCall().ToContract()
	require.NoError(t, err)
	assert.NotEqual(t, cacheKey(domain.DegenerateIntrinsic, c), cacheKey(domain.DegenerateReject, c))

	other := c
	other.Symbol = "MSFT"
	assert.Equal(t, cacheKey(domain.DegenerateIntrinsic, c), cacheKey(domain.DegenerateIntrinsic, other))
}

func TestPriceOptionRecordsHistoryAndOutboxInTx(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), repo, nil, pub, nil, defaultOpts())
	fixed := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, fixed.UnixMilli(), rec.CalculatedAt)
	assert.Equal(t, domain.ModelBlackScholes, rec.PricingModel)

	priced := pub.byType(domain.OptionPricedEventType)
	require.Len(t, priced, 1)
	assert.True(t, priced[0].inTx)
	assert.Equal(t, "pricing-events", priced[0].topic)
}

func TestPriceOptionHistoryFailureDoesNotFailPricing(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), repo, nil, nil, nil, defaultOpts())

	out, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 3.6115602906039186, out.Result.TheoreticalPrice, 1e-9)
	assert.Empty(t, repo.records)
}

func TestCalculateBSConvertsUnitsAndRounds(t *testing.T) {
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, defaultOpts())

	res, err := svc.CalculateBS(context.Background(), CalculateBSCommand{
		StockPrice: 100, Strike: 100, TimeToExpiry: 30, RiskFreeRate: 4.5, Volatility: 30, OptionType: "put",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.24, res.TheoreticalPrice)
	assert.Equal(t, -0.4657, res.Greeks.Delta)
	assert.Equal(t, 0.0462, res.Greeks.Gamma)
	assert.Equal(t, -0.0508, res.Greeks.Theta)
	assert.Equal(t, 0.114, res.Greeks.Vega)
}

func TestBatchPriceOptions(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, pub, nil, defaultOpts())

	bad := atmCall()
	bad.Symbol = "BAD"
	bad.Volatility = -1
	put := atmCall()
	put.Symbol = "MSFT"
	put.OptionType = "put"

	res, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		BatchID:   "batch-1",
		Contracts: []PriceOptionCommand{atmCall(), bad, put},
	})
	require.NoError(t, err)
	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Items, 3)

	for i, item := range res.Items {
		assert.Equal(t, i, item.Index)
	}
	assert.InDelta(t, 3.6115602906039186, res.Items[0].Outcome.Result.TheoreticalPrice, 1e-9)
	assert.ErrorIs(t, res.Items[1].Err, domain.ErrInvalidParameter)
	assert.Nil(t, res.Items[1].Outcome)
	assert.InDelta(t, 3.2423804276496284, res.Items[2].Outcome.Result.TheoreticalPrice, 1e-9)

	done := pub.byType(domain.BatchPricingCompletedEventType)
	require.Len(t, done, 1)
	ev := done[0].event.(domain.BatchPricingCompletedEvent)
	assert.Equal(t, 3, ev.TotalContracts)
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT"}, ev.Symbols)
}

func TestBatchPriceOptionsLimits(t *testing.T) {
	opts := defaultOpts()
	opts.BatchMaxSize = 2
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, opts)

	_, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		Contracts: []PriceOptionCommand{atmCall(), atmCall(), atmCall()},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestBatchPriceOptionsGeneratesID(t *testing.T) {
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, defaultOpts())

	res, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		Contracts: []PriceOptionCommand{atmCall()},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
}

func TestBatchPriceOptionsCancelledContext(t *testing.T) {
	svc := NewPricingCommandService(domain.NewPricer(domain.DegenerateIntrinsic), nil, nil, nil, nil, defaultOpts())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.BatchPriceOptions(ctx, BatchPriceOptionsCommand{
		Contracts: []PriceOptionCommand{atmCall(), atmCall()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FailureCount)
	assert.ErrorIs(t, res.Items[0].Err, context.Canceled)
}
