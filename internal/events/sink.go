package events

import (
	"sync"

	"go.uber.org/zap"
)

// Sink consumes committed events. The contract surface emits only
// after the storage transaction commits, so sinks never observe
// rolled-back state.
type Sink interface {
	Emit(e Event)
}

type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(e Event) {
	s.log.Info(e.String(), zap.String("event", e.Name()))
}

// Fanout forwards each event to every registered sink.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

func (f *Fanout) Emit(e Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sinks {
		s.Emit(e)
	}
}

// Collector keeps emitted events in order. Test sink.
type Collector struct {
	mu     sync.Mutex
	Events []Event
}

func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, e)
}

func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Events))
	for _, e := range c.Events {
		out = append(out, e.Name())
	}
	return out
}
