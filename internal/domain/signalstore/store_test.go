package signalstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

func sampleSignal(symbol string) signalmodel.Signal {
	return signalmodel.Signal{
		Symbol:    symbol,
		Timeframe: candle.TF1h,
		Direction: signalmodel.Long,
		Status:    signalmodel.StatusPending,
		EntryPrice: 100, StopLoss: 95, TakeProfit: 110,
	}
}

func TestSaveSignal_AssignsMonotonicIDs(t *testing.T) {
	s := New()

	id1 := s.SaveSignal(sampleSignal("BTCUSD"))
	id2 := s.SaveSignal(sampleSignal("ETHUSD"))

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestGetSignals_FiltersBySymbolStatusAndTimeframe(t *testing.T) {
	s := New()
	s.SaveSignal(sampleSignal("BTCUSD"))
	id2 := s.SaveSignal(sampleSignal("ETHUSD"))

	active := signalmodel.StatusActive
	s.UpdateSignal(id2, Patch{Status: &active})

	btc := s.GetSignals("BTCUSD", nil, nil)
	require.Len(t, btc, 1)
	assert.Equal(t, "BTCUSD", btc[0].Symbol)

	activeOnly := s.GetSignals("", &active, nil)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, "ETHUSD", activeOnly[0].Symbol)

	tf := candle.TF1h
	byTF := s.GetSignals("", nil, &tf)
	assert.Len(t, byTF, 2)
}

func TestUpdateSignal_UnknownIDReturnsNil(t *testing.T) {
	s := New()
	assert.Nil(t, s.UpdateSignal(999, Patch{}))
}

func TestUpdateSignal_AppliesOnlyNonNilFields(t *testing.T) {
	s := New()
	id := s.SaveSignal(sampleSignal("BTCUSD"))

	status := signalmodel.StatusWin
	pnl := 42.0
	now := time.Now()
	updated := s.UpdateSignal(id, Patch{Status: &status, OutcomePnL: &pnl, ClosedAt: &now})

	require.NotNil(t, updated)
	assert.Equal(t, signalmodel.StatusWin, updated.Status)
	require.NotNil(t, updated.OutcomePnL)
	assert.Equal(t, 42.0, *updated.OutcomePnL)
	assert.Equal(t, 100.0, updated.EntryPrice) // untouched field preserved
}

func TestGet_ReturnsCopyNotPointerAliasing(t *testing.T) {
	s := New()
	id := s.SaveSignal(sampleSignal("BTCUSD"))

	got, ok := s.Get(id)
	require.True(t, ok)
	got.EntryPrice = 999

	again, _ := s.Get(id)
	assert.Equal(t, 100.0, again.EntryPrice)
}

func TestGet_UnknownIDReturnsFalse(t *testing.T) {
	s := New()
	_, ok := s.Get(12345)
	assert.False(t, ok)
}

func TestAll_ReturnsEveryStoredSignal(t *testing.T) {
	s := New()
	s.SaveSignal(sampleSignal("BTCUSD"))
	s.SaveSignal(sampleSignal("ETHUSD"))

	assert.Len(t, s.All(), 2)
}

func TestStore_ConcurrentAccessIsRaceFree(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := s.SaveSignal(sampleSignal("BTCUSD"))
			status := signalmodel.StatusActive
			s.UpdateSignal(id, Patch{Status: &status})
			s.Get(id)
			s.All()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.All(), 50)
}
