package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func buySignal() *domain.DailySignal {
	return &domain.DailySignal{
		ID:          "sig-1",
		TradeDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Action:      domain.ActionBuy,
		SignalType:  domain.SignalTypeMomentum,
		RegimeScore: 0.42,
		RiskScore:   28,
		Confidence:  0.7,
		Allocations: map[string]decimal.Decimal{
			"SPY": decimal.RequireFromString("600"),
			"QQQ": decimal.RequireFromString("250.5"),
		},
		AssetScores: map[string]float64{"SPY": 0.8, "QQQ": 0.6, "DIA": 0.1},
		ContentHash: "abc",
		GeneratedAt: time.Date(2024, 6, 9, 22, 0, 0, 0, time.UTC),
	}
}

func TestNewMessage_Buy(t *testing.T) {
	m := NewMessage(buySignal())

	assert.Equal(t, "2024-06-10", m.TradeDate)
	require.Len(t, m.Allocations, 2)
	assert.Equal(t, Allocation{Symbol: "QQQ", Amount: "250.50", Score: 0.6}, m.Allocations[0])
	assert.Equal(t, Allocation{Symbol: "SPY", Amount: "600.00", Score: 0.8}, m.Allocations[1])
	assert.Empty(t, m.SellOrder)
	assert.Zero(t, m.SellFraction)
}

func TestNewMessage_SellOrdersWeakestFirst(t *testing.T) {
	s := buySignal()
	s.Action = domain.ActionSell
	s.SignalType = domain.SignalTypeDefensive
	s.Allocations = nil
	s.SellFraction = 0.7

	m := NewMessage(s)
	assert.Equal(t, []string{"DIA", "QQQ", "SPY"}, m.SellOrder)
	assert.Equal(t, 0.7, m.SellFraction)
	assert.Empty(t, m.Allocations)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "daily-signals"}

	require.NoError(t, p.Publish(context.Background(), buySignal()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "2024-06-10", string(w.msgs[0].Key))
	assert.Equal(t, "content_hash", w.msgs[0].Headers[0].Key)

	var got Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, domain.ActionBuy, got.Action)
	assert.Equal(t, "sig-1", got.SignalID)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}, topic: "t"}

	err := p.Publish(context.Background(), buySignal())
	assert.ErrorIs(t, err, boom)
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "t", time.Second)
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), buySignal()))
	require.NoError(t, Nop{}.Publish(context.Background(), buySignal()))
	assert.Len(t, r.Messages, 1)
}
