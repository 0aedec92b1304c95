package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/storage"
)

// --- Fakes ---

type fakeGateway struct {
	mu      sync.Mutex
	prices  map[string]float64
	errs    map[string]error
	onQuote func(symbol string)
	calls   map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{prices: map[string]float64{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (g *fakeGateway) setPrice(sym string, p float64) {
	g.mu.Lock()
	g.prices[sym] = p
	g.mu.Unlock()
}

func (g *fakeGateway) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	g.mu.Lock()
	g.calls[symbol]++
	hook := g.onQuote
	err := g.errs[symbol]
	price, ok := g.prices[symbol]
	g.mu.Unlock()

	if hook != nil {
		hook(symbol)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.UnknownSymbolError(symbol)
	}
	return &models.Quote{Symbol: symbol, Price: price}, nil
}

func (g *fakeGateway) Search(context.Context, string) ([]models.SearchResult, error) {
	return nil, nil
}

func (g *fakeGateway) GetHistory(context.Context, string, string, string) ([]models.HistoryPoint, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.AlertNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, note models.AlertNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// blockingNotifier holds every Notify call until release is closed
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (n *blockingNotifier) Notify(ctx context.Context, _ models.AlertNotification) error {
	n.once.Do(func() { close(n.started) })
	select {
	case <-n.release:
	case <-ctx.Done():
	}
	return nil
}

type fixture struct {
	svc      *Service
	gw       *fakeGateway
	notifier *recordingNotifier
	store    *storage.Collection[models.Alert]
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	f := &fixture{
		gw:       newFakeGateway(),
		notifier: &recordingNotifier{},
		store:    storage.NewCollection[models.Alert](storage.NewMemoryStore(), models.AlertsCollection, logger),
		now:      time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.svc = NewService(f.store, f.gw, f.notifier, common.NewIDSource(clock), logger)
	f.svc.now = clock
	return f
}

func (f *fixture) create(t *testing.T, sym string, target float64, cond models.Condition) *models.Alert {
	t.Helper()
	a, err := f.svc.Create(context.Background(), models.AlertInput{Symbol: sym, TargetPrice: target, Condition: cond})
	require.NoError(t, err)
	return a
}

// --- Tests ---

func TestCreate_StoresActiveAlert(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 190)

	a, err := f.svc.Create(context.Background(), models.AlertInput{Symbol: " aapl ", TargetPrice: 200, Condition: "Above"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, models.ConditionAbove, a.Condition)
	assert.True(t, a.Active)
	assert.False(t, a.Triggered)
	assert.Equal(t, f.now.UnixMilli(), a.ID)

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *a, stored[0])
}

func TestCreate_IDsAreUniqueWithinMillisecond(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 190)

	a := f.create(t, "AAPL", 200, models.ConditionAbove)
	b := f.create(t, "AAPL", 150, models.ConditionBelow)
	assert.Equal(t, a.ID+1, b.ID)
}

func TestCreate_ValidationRejected(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 190)

	tests := []struct {
		name  string
		in    models.AlertInput
		field string
	}{
		{"missing symbol", models.AlertInput{TargetPrice: 10, Condition: "above"}, "symbol"},
		{"zero target", models.AlertInput{Symbol: "AAPL", TargetPrice: 0, Condition: "above"}, "targetPrice"},
		{"negative target", models.AlertInput{Symbol: "AAPL", TargetPrice: -5, Condition: "below"}, "targetPrice"},
		{"bad condition", models.AlertInput{Symbol: "AAPL", TargetPrice: 10, Condition: "sideways"}, "condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.in)
			var ve *common.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	stored, _ := f.store.Load(context.Background())
	assert.Empty(t, stored, "rejected input must not be persisted")
}

func TestCreate_UnknownSymbolRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), models.AlertInput{Symbol: "NOPE", TargetPrice: 10, Condition: "above"})
	assert.True(t, common.IsUnknownSymbol(err))

	stored, _ := f.store.Load(context.Background())
	assert.Empty(t, stored)
}

func TestCreate_TransientLookupStillCreates(t *testing.T) {
	f := newFixture(t)
	f.gw.errs["AAPL"] = common.TransientError("AAPL", errors.New("timeout"))

	a, err := f.svc.Create(context.Background(), models.AlertInput{Symbol: "AAPL", TargetPrice: 10, Condition: "above"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 190)
	a := f.create(t, "AAPL", 200, models.ConditionAbove)
	f.now = f.now.Add(time.Second)
	b := f.create(t, "AAPL", 100, models.ConditionBelow)

	require.NoError(t, f.svc.Delete(context.Background(), a.ID))

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	err = f.svc.Delete(context.Background(), a.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

// Scenario A: price 99 then 100 against "above 100" fires on the second tick.
func TestEvaluate_TriggersOnSecondTick(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 99)
	a := f.create(t, "X", 100, models.ConditionAbove)

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Checked)
	assert.Empty(t, ev.Triggered)
	assert.Equal(t, 0, f.notifier.count())

	f.gw.setPrice("X", 100)
	f.now = f.now.Add(30 * time.Second)
	ev, err = f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, ev.Triggered, 1)

	require.Equal(t, 1, f.notifier.count())
	note := f.notifier.sent[0]
	assert.Equal(t, "X", note.Symbol)
	assert.Equal(t, 100.0, note.CurrentPrice)
	assert.Equal(t, 100.0, note.TargetPrice)
	assert.Equal(t, a.ID, note.AlertID)
	assert.NotEmpty(t, note.EventID)

	stored, _ := f.store.Load(context.Background())
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Triggered)
	require.NotNil(t, stored[0].TriggeredAt)
	assert.Equal(t, f.now, *stored[0].TriggeredAt)
}

func TestEvaluate_BelowIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("TSLA", 150)
	f.create(t, "TSLA", 150, models.ConditionBelow)

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Len(t, ev.Triggered, 1)
}

func TestEvaluate_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 120)
	f.create(t, "X", 100, models.ConditionAbove)

	_, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	first, _ := f.store.Load(context.Background())

	f.now = f.now.Add(time.Minute)
	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, ev.Checked, "triggered alerts are not re-evaluated")
	assert.Equal(t, 1, f.notifier.count())
	second, _ := f.store.Load(context.Background())
	assert.Equal(t, first, second, "triggeredAt must not change")
}

func TestEvaluate_FetchesEachSymbolOnce(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 190)
	f.create(t, "AAPL", 200, models.ConditionAbove)
	f.create(t, "AAPL", 180, models.ConditionBelow)
	f.create(t, "AAPL", 250, models.ConditionAbove)
	f.gw.calls = map[string]int{}

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ev.Checked)
	assert.Equal(t, 1, ev.Symbols)
	assert.Equal(t, 1, f.gw.calls["AAPL"])
}

func TestEvaluate_TransientFailureSkipsOnlyThatSymbol(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("AAPL", 300)
	f.gw.setPrice("TSLA", 100)
	f.create(t, "AAPL", 200, models.ConditionAbove)
	f.create(t, "TSLA", 150, models.ConditionBelow)
	f.gw.errs["TSLA"] = common.TransientError("TSLA", errors.New("502"))

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ev.FetchFailures)
	require.Len(t, ev.Triggered, 1)
	assert.Equal(t, "AAPL", ev.Triggered[0].Symbol)

	delete(f.gw.errs, "TSLA")
	ev, err = f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, ev.Triggered, 1, "failed symbol is retried next tick")
	assert.Equal(t, "TSLA", ev.Triggered[0].Symbol)
}

func TestEvaluate_InactiveIgnored(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 500)
	a := f.create(t, "X", 100, models.ConditionAbove)
	require.NoError(t, f.store.Update(context.Background(), func(cur []models.Alert) ([]models.Alert, error) {
		cur[0].Active = false
		return cur, nil
	}))

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ev.Checked)
	assert.Equal(t, 0, f.notifier.count())

	stored, _ := f.store.Load(context.Background())
	assert.Equal(t, a.ID, stored[0].ID)
	assert.False(t, stored[0].Triggered)
}

func TestEvaluate_InvalidStoredRecordNeverFires(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 500)
	require.NoError(t, f.store.Save(context.Background(), []models.Alert{
		{ID: 1, Symbol: "X", Condition: models.ConditionAbove, Active: true}, // targetPrice lost
	}))

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ev.Checked)
	assert.Empty(t, ev.Triggered)
	assert.Equal(t, 0, f.notifier.count())
}

// Scenario D: an alert deleted while its quote is in flight is not resurrected.
func TestEvaluate_DeletedMidTickIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 120)
	a := f.create(t, "X", 100, models.ConditionAbove)
	keep := f.create(t, "X", 110, models.ConditionAbove)

	var once sync.Once
	f.gw.onQuote = func(string) {
		once.Do(func() {
			assert.NoError(t, f.svc.Delete(context.Background(), a.ID))
		})
	}

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ev.SkippedGone)
	require.Len(t, ev.Triggered, 1)
	assert.Equal(t, keep.ID, ev.Triggered[0].ID)

	stored, _ := f.store.Load(context.Background())
	require.Len(t, stored, 1, "deleted alert must not be written back")
	assert.Equal(t, keep.ID, stored[0].ID)
	assert.Equal(t, 1, f.notifier.count())
}

func TestEvaluate_NotifierFailureStillMarksTriggered(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("webhook down")
	f.gw.setPrice("X", 120)
	f.create(t, "X", 100, models.ConditionAbove)

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Len(t, ev.Triggered, 1)

	stored, _ := f.store.Load(context.Background())
	assert.True(t, stored[0].Triggered)
}

func TestEvaluate_ConcurrentTicksNotifyOnce(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 120)
	f.create(t, "X", 100, models.ConditionAbove)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Evaluate(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.notifier.count())
}

func TestEvaluate_SlowNotifierDoesNotHoldCollection(t *testing.T) {
	f := newFixture(t)
	n := &blockingNotifier{started: make(chan struct{}), release: make(chan struct{})}
	f.svc.notifier = n
	f.gw.setPrice("X", 100)
	f.gw.setPrice("Y", 10)
	f.create(t, "X", 100, models.ConditionAbove)
	other := f.create(t, "Y", 50, models.ConditionAbove)

	evalDone := make(chan models.Evaluation, 1)
	go func() {
		ev, err := f.svc.Evaluate(context.Background())
		assert.NoError(t, err)
		evalDone <- ev
	}()

	select {
	case <-n.started:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
	}

	deleted := make(chan error, 1)
	go func() { deleted <- f.svc.Delete(context.Background(), other.ID) }()
	select {
	case err := <-deleted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		close(n.release)
		t.Fatal("Delete blocked while a notification was in flight")
	}

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Triggered, "trigger is persisted before the notification completes")

	close(n.release)
	select {
	case ev := <-evalDone:
		assert.Len(t, ev.Triggered, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Evaluate did not return after the notification finished")
	}
}

func TestEvaluate_StoredSymbolCaseIsNormalized(t *testing.T) {
	f := newFixture(t)
	f.gw.setPrice("X", 120)
	require.NoError(t, f.store.Save(context.Background(), []models.Alert{
		{ID: 7, Symbol: " x ", TargetPrice: 100, Condition: models.ConditionAbove, Active: true},
	}))

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, ev.Triggered, 1)
	assert.Equal(t, int64(7), ev.Triggered[0].ID)
}

func TestEvaluate_EmptyCollection(t *testing.T) {
	f := newFixture(t)

	ev, err := f.svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ev.Checked)
	assert.NotNil(t, ev.Triggered)
}
