package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

func newAlertCollection(t *testing.T) (*Collection[models.Alert], *MemoryStore) {
	t.Helper()
	mem := NewMemoryStore()
	return NewCollection[models.Alert](mem, models.AlertsCollection, common.NewSilentLogger()), mem
}

func TestCollection_LoadAbsentIsEmpty(t *testing.T) {
	c, _ := newAlertCollection(t)

	alerts, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestCollection_LoadMalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, blob := range map[string]string{
		"truncated":   `[{"id":1,"symbol":"AAPL"`,
		"wrong shape": `{"id":1}`,
		"garbage":     `not json at all`,
		"null":        `null`,
		"whitespace":  "  \n",
	} {
		t.Run(name, func(t *testing.T) {
			c, mem := newAlertCollection(t)
			require.NoError(t, mem.Write(ctx, models.AlertsCollection, []byte(blob)))

			alerts, err := c.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, alerts)
		})
	}
}

func TestCollection_RoundTripPreservesOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := newAlertCollection(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	in := []models.Alert{
		{ID: 3, Symbol: "TSLA", TargetPrice: 200, Condition: models.ConditionBelow, Active: true, CreatedAt: created},
		{ID: 1, Symbol: "AAPL", TargetPrice: 150, Condition: models.ConditionAbove, Active: true, CreatedAt: created},
		{ID: 2, Symbol: "BTC-USD", TargetPrice: 90000, Condition: models.ConditionAbove, Active: false, CreatedAt: created},
	}
	require.NoError(t, c.Save(ctx, in))

	out, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCollection_SaveOfLoadIsNoop(t *testing.T) {
	ctx := context.Background()
	c, mem := newAlertCollection(t)

	require.NoError(t, c.Save(ctx, []models.Alert{{ID: 1, Symbol: "AAPL", TargetPrice: 1, Condition: models.ConditionAbove, Active: true}}))
	before, _ := mem.Read(ctx, models.AlertsCollection)

	loaded, err := c.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, loaded))

	after, _ := mem.Read(ctx, models.AlertsCollection)
	assert.Equal(t, string(before), string(after))
}

func TestCollection_UpdateErrorDoesNotSave(t *testing.T) {
	ctx := context.Background()
	c, mem := newAlertCollection(t)

	boom := errors.New("boom")
	err := c.Update(ctx, func(a []models.Alert) ([]models.Alert, error) {
		return append(a, models.Alert{ID: 9}), boom
	})
	assert.ErrorIs(t, err, boom)

	data, _ := mem.Read(ctx, models.AlertsCollection)
	assert.Nil(t, data)
}

func TestCollection_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	c, _ := newAlertCollection(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := c.Update(ctx, func(a []models.Alert) ([]models.Alert, error) {
				return append(a, models.Alert{ID: int64(i), Symbol: fmt.Sprintf("S%d", i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	alerts, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 50)
}

type failingBlobs struct{ err error }

func (f failingBlobs) Read(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingBlobs) Write(context.Context, string, []byte) error  { return f.err }
func (f failingBlobs) Close() error                                 { return nil }

func TestCollection_BackendErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	ioErr := errors.New("disk on fire")
	c := NewCollection[models.Holding](failingBlobs{err: ioErr}, models.PortfolioCollection, nil)

	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, ioErr)
	assert.ErrorIs(t, c.Save(ctx, nil), ioErr)
	assert.Equal(t, models.PortfolioCollection, c.Name())
}
