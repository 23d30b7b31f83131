// Package publish hands persisted daily signals to the execution
// collaborator.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"capital-allocator/internal/domain"
)

// Publisher delivers a signal downstream.
type Publisher interface {
	Publish(ctx context.Context, s *domain.DailySignal) error
	Close() error
}

// Allocation is one BUY line of the execution contract.
type Allocation struct {
	Symbol string  `json:"symbol"`
	Amount string  `json:"amount"` // decimal dollars
	Score  float64 `json:"score"`
}

// Message is the execution contract: what to do today and how much.
type Message struct {
	SignalID             string        `json:"signal_id"`
	TradeDate            string        `json:"trade_date"`
	Action               domain.Action `json:"action"`
	SignalType           string        `json:"signal_type"`
	RegimeScore          float64       `json:"regime_score"`
	RiskScore            float64       `json:"risk_score"`
	Confidence           float64       `json:"confidence"`
	SellFraction         float64       `json:"sell_fraction,omitempty"`
	Allocations          []Allocation  `json:"allocations,omitempty"`
	SellOrder            []string      `json:"sell_order,omitempty"` // weakest first
	CircuitBreakerActive bool          `json:"circuit_breaker_active"`
	ConfigVersionID      string        `json:"config_version_id"`
	ContentHash          string        `json:"content_hash"`
}

// NewMessage builds the contract for s. Allocations are ordered by symbol;
// SellOrder lists scored symbols weakest first.
func NewMessage(s *domain.DailySignal) Message {
	m := Message{
		SignalID:             s.ID,
		TradeDate:            s.TradeDate.Format("2006-01-02"),
		Action:               s.Action,
		SignalType:           s.SignalType,
		RegimeScore:          s.RegimeScore,
		RiskScore:            s.RiskScore,
		Confidence:           s.Confidence,
		CircuitBreakerActive: s.CircuitBreakerActive,
		ConfigVersionID:      s.ConfigVersionID,
		ContentHash:          s.ContentHash,
	}

	switch s.Action {
	case domain.ActionBuy:
		for sym, amt := range s.Allocations {
			m.Allocations = append(m.Allocations, Allocation{Symbol: sym, Amount: amt.StringFixed(2), Score: s.AssetScores[sym]})
		}
		sort.Slice(m.Allocations, func(i, j int) bool { return m.Allocations[i].Symbol < m.Allocations[j].Symbol })
	case domain.ActionSell:
		m.SellFraction = s.SellFraction
		for sym := range s.AssetScores {
			m.SellOrder = append(m.SellOrder, sym)
		}
		sort.Slice(m.SellOrder, func(i, j int) bool {
			a, b := s.AssetScores[m.SellOrder[i]], s.AssetScores[m.SellOrder[j]]
			if a != b {
				return a < b
			}
			return m.SellOrder[i] < m.SellOrder[j]
		})
	}
	return m
}

// messageWriter is the subset of kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per signal keyed by trade date.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a synchronous writer with full acknowledgement.
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: writeTimeout,
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, s *domain.DailySignal) error {
	m := NewMessage(s)
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal signal message: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(m.TradeDate),
		Value: value,
		Time:  s.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "content_hash", Value: []byte(s.ContentHash)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish signal %s to %s: %w", m.TradeDate, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards signals.
type Nop struct{}

func (Nop) Publish(context.Context, *domain.DailySignal) error { return nil }
func (Nop) Close() error                                        { return nil }

// Recorder keeps published messages in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Publish(_ context.Context, s *domain.DailySignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, NewMessage(s))
	return nil
}

func (r *Recorder) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Nop{}
	_ Publisher = (*Recorder)(nil)
)
