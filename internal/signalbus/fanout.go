// Package signalbus broadcasts trade signals from the strategy engine to
// the downstream consumers (executor, notifier, cache, journal).
package signalbus

import (
	"context"
	"log"
	"sync"

	"signalbotv1/internal/model"
)

// FanOut broadcasts signals from a single input channel to N output
// channels. If an output channel is full, the signal is dropped for that
// consumer so a stalled notifier cannot block execution.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan model.TradeSignal
	bufSize int

	// OnDrop is called when a signal is dropped for a subscriber.
	// subscriberIdx is the 0-based index of the slow consumer.
	OnDrop func(subscriberIdx int, sig model.TradeSignal)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel. Subscribe before
// Run starts delivering; late subscribers miss earlier signals.
func (f *FanOut) Subscribe() <-chan model.TradeSignal {
	ch := make(chan model.TradeSignal, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed; output channels are
// closed on exit.
func (f *FanOut) Run(ctx context.Context, input <-chan model.TradeSignal) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- sig:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i, sig)
					} else {
						log.Printf("[signalbus] output channel %d full, dropping %s %s", i, sig.Symbol, sig.Direction)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

// ChannelStat reports (length, capacity) for a subscriber channel.
// Used for reporting channel saturation percentage.
type ChannelStat struct {
	Len int
	Cap int
}

func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, ch := range f.outputs {
		stats[i] = ChannelStat{Len: len(ch), Cap: cap(ch)}
	}
	return stats
}
