package resolution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/store/memory"
)

type fakeResolver struct {
	platform string
	mu       sync.Mutex
	records  map[string]domain.ResolutionRecord
	errs     map[string]error
	calls    atomic.Int32
	delay    func(marketID string) time.Duration
}

func newFakeResolver(platform string) *fakeResolver {
	return &fakeResolver{
		platform: platform,
		records:  make(map[string]domain.ResolutionRecord),
		errs:     make(map[string]error),
	}
}

func (f *fakeResolver) Platform() string { return f.platform }

func (f *fakeResolver) GetResolution(ctx context.Context, marketID string) (domain.ResolutionRecord, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(marketID)):
		case <-ctx.Done():
			return domain.ResolutionRecord{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[marketID]; ok {
		return domain.ResolutionRecord{}, err
	}
	rec, ok := f.records[marketID]
	if !ok {
		return domain.ResolutionRecord{MarketID: marketID, Platform: f.platform}, nil
	}
	return rec, nil
}

func (f *fakeResolver) settle(marketID string, side domain.Side, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[marketID] = domain.ResolutionRecord{
		MarketID: marketID, Platform: f.platform, Resolved: true, Outcome: side, ResolvedAt: at,
	}
}

type recordingBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (b *recordingBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = make(map[string][][]byte)
	}
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type countingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *countingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingSignal(id, market string, prediction domain.Side) domain.Signal {
	return domain.Signal{
		ID:          id,
		EventID:     "evt-" + market,
		MarketID:    market,
		Platform:    "polymarket",
		MarketTitle: "Will it rain at Wembley?",
		Prediction:  prediction,
		Outcome:     domain.OutcomePending,
		Timestamp:   testNow.Add(-time.Hour),
	}
}

func newTestEngine(t *testing.T, store domain.SignalStore, resolvers []domain.MarketResolver, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewEngine(store, resolvers, Config{Parallelism: 3}, testLogger(), opts...)
}

func insert(t *testing.T, store *memory.SignalStore, sigs ...domain.Signal) {
	t.Helper()
	for _, s := range sigs {
		require.NoError(t, store.Insert(context.Background(), s))
	}
}

func TestResolveSignal_WinAndLoss(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	settledAt := testNow.Add(-30 * time.Minute)
	poly.settle("m1", domain.SideYes, settledAt)
	poly.settle("m2", domain.SideYes, settledAt)

	win := pendingSignal("s1", "m1", domain.SideYes)
	loss := pendingSignal("s2", "m2", domain.SideNo)
	insert(t, store, win, loss)

	bus := &recordingBus{}
	e := newTestEngine(t, store, []domain.MarketResolver{poly}, WithBus(bus))

	r := e.ResolveSignal(ctx, win)
	assert.Equal(t, StatusResolved, r.Status)
	assert.Equal(t, domain.OutcomeWin, r.Outcome)
	require.NotNil(t, r.ResolvedAt)
	assert.True(t, r.ResolvedAt.Equal(settledAt))

	r = e.ResolveSignal(ctx, loss)
	assert.Equal(t, StatusResolved, r.Status)
	assert.Equal(t, domain.OutcomeLoss, r.Outcome)

	stored, err := store.GetByID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeLoss, stored.Outcome)
	require.NotNil(t, stored.ResolvedAt)

	assert.Len(t, bus.messages[domain.ChannelSignalResolved], 2)
}

func TestResolveSignal_TerminalIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	e := newTestEngine(t, store, []domain.MarketResolver{poly})

	at := testNow.Add(-2 * time.Hour)
	sig := pendingSignal("s1", "m1", domain.SideYes)
	sig.Outcome = domain.OutcomeLoss
	sig.ResolvedAt = &at

	r := e.ResolveSignal(ctx, sig)
	assert.Equal(t, StatusResolved, r.Status)
	assert.Equal(t, domain.OutcomeLoss, r.Outcome)
	assert.Equal(t, &at, r.ResolvedAt)
	assert.Zero(t, poly.calls.Load(), "terminal signals must not hit the platform")
}

func TestResolveSignal_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.settle("m1", domain.SideNo, testNow)
	sig := pendingSignal("s1", "m1", domain.SideNo)
	insert(t, store, sig)

	e := newTestEngine(t, store, []domain.MarketResolver{poly})

	first := e.ResolveSignal(ctx, sig)
	// sig is the stale PENDING copy; the store guard rejects the second write.
	second := e.ResolveSignal(ctx, sig)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Outcome, second.Outcome)
	require.NotNil(t, second.ResolvedAt)
	assert.True(t, first.ResolvedAt.Equal(*second.ResolvedAt))
}

func TestResolveSignal_StillOpen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	sig := pendingSignal("s1", "m1", domain.SideYes)
	insert(t, store, sig)

	r := newTestEngine(t, store, []domain.MarketResolver{poly}).ResolveSignal(ctx, sig)
	assert.Equal(t, StatusPending, r.Status)
	assert.Nil(t, r.ResolvedAt)

	stored, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, stored.Outcome)
}

func TestResolveSignal_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.errs["m1"] = errors.New("gamma: 502")
	poly.settle("m3", domain.SideYes, testNow)

	broken := pendingSignal("s1", "m1", domain.SideYes)
	unknown := pendingSignal("s2", "m2", domain.SideYes)
	unknown.Platform = "augur"
	noPrediction := pendingSignal("s3", "m3", "")
	insert(t, store, broken, unknown, noPrediction)

	notifier := &countingNotifier{}
	e := newTestEngine(t, store, []domain.MarketResolver{poly}, WithNotifier(notifier))

	for _, sig := range []domain.Signal{broken, unknown, noPrediction} {
		r := e.ResolveSignal(ctx, sig)
		assert.Equal(t, StatusError, r.Status, sig.ID)
		assert.NotEmpty(t, r.Error, sig.ID)

		stored, err := store.GetByID(ctx, sig.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomePending, stored.Outcome, sig.ID)
	}
	assert.Empty(t, notifier.events)
}

func TestResolveSignal_PlatformCaseInsensitive(t *testing.T) {
	store := memory.NewSignalStore()
	kalshi := newFakeResolver("Kalshi")
	kalshi.settle("K-1", domain.SideYes, testNow)
	sig := pendingSignal("s1", "K-1", domain.SideYes)
	sig.Platform = "kalshi"
	insert(t, store, sig)

	r := newTestEngine(t, store, []domain.MarketResolver{kalshi}).ResolveSignal(context.Background(), sig)
	assert.Equal(t, StatusResolved, r.Status)
	assert.Equal(t, domain.OutcomeWin, r.Outcome)
}

func TestResolveSignal_FallsBackToNow(t *testing.T) {
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.settle("m1", domain.SideYes, time.Time{})
	sig := pendingSignal("s1", "m1", domain.SideYes)
	insert(t, store, sig)

	r := newTestEngine(t, store, []domain.MarketResolver{poly}).ResolveSignal(context.Background(), sig)
	require.NotNil(t, r.ResolvedAt)
	assert.True(t, r.ResolvedAt.Equal(testNow))
}

func TestResolveBatch_PreservesOrder(t *testing.T) {
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	// Earlier markets answer slower so completion order is reversed.
	poly.delay = func(marketID string) time.Duration {
		switch marketID {
		case "m0":
			return 30 * time.Millisecond
		case "m1":
			return 15 * time.Millisecond
		}
		return 0
	}
	poly.settle("m0", domain.SideYes, testNow)
	poly.settle("m2", domain.SideYes, testNow)
	poly.errs["m3"] = errors.New("boom")

	sigs := []domain.Signal{
		pendingSignal("s0", "m0", domain.SideYes),
		pendingSignal("s1", "m1", domain.SideYes),
		pendingSignal("s2", "m2", domain.SideNo),
		pendingSignal("s3", "m3", domain.SideYes),
	}
	insert(t, store, sigs...)

	results := newTestEngine(t, store, []domain.MarketResolver{poly}).ResolveBatch(context.Background(), sigs)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, sigs[i].ID, r.SignalID)
	}
	assert.Equal(t, domain.OutcomeWin, results[0].Outcome)
	assert.Equal(t, StatusPending, results[1].Status)
	assert.Equal(t, domain.OutcomeLoss, results[2].Outcome)
	assert.Equal(t, StatusError, results[3].Status)
}

func TestResolveEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.settle("m1", domain.SideNo, testNow)

	a := pendingSignal("a", "m1", domain.SideNo)
	b := pendingSignal("b", "m1", domain.SideYes)
	other := pendingSignal("c", "m9", domain.SideYes)
	insert(t, store, a, b, other)

	results, err := newTestEngine(t, store, []domain.MarketResolver{poly}).ResolveEvent(ctx, "evt-m1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeWin, results[0].Outcome)
	assert.Equal(t, domain.OutcomeLoss, results[1].Outcome)

	stored, err := store.GetByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, stored.Outcome)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.settle("m1", domain.SideYes, testNow)
	poly.errs["m3"] = errors.New("timeout")
	insert(t, store,
		pendingSignal("s1", "m1", domain.SideYes),
		pendingSignal("s2", "m2", domain.SideYes),
		pendingSignal("s3", "m3", domain.SideYes),
	)

	notifier := &countingNotifier{}
	e := newTestEngine(t, store, []domain.MarketResolver{poly}, WithNotifier(notifier))

	sum, err := e.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Resolved: 1, Pending: 1, Errors: 1}, sum)
	assert.Equal(t, []string{EventSignalResolved, EventSweepError}, notifier.events)

	pending, err := store.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSweep_SkipsWhenLockHeld(t *testing.T) {
	store := memory.NewSignalStore()
	poly := newFakeResolver("polymarket")
	poly.settle("m1", domain.SideYes, testNow)
	insert(t, store, pendingSignal("s1", "m1", domain.SideYes))

	sum, err := newTestEngine(t, store, []domain.MarketResolver{poly}, WithLock(heldLock{})).Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Skipped)
	assert.Zero(t, poly.calls.Load())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(memory.NewSignalStore(), nil, Config{Interval: time.Millisecond}, testLogger())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
