package api

import (
    "sync"
)

// RunEvent is a progress or completion event for one optimization run.
type RunEvent struct {
    Type string         `json:"type"` // run.progress, run.completed, run.failed
    Data map[string]any `json:"data"`
}

// Broker fans run events out to SSE and websocket subscribers in-process.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan RunEvent]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan RunEvent {
    ch := make(chan RunEvent, 8)
    b.mu.Lock()
    if b.subs[runID] == nil { b.subs[runID] = map[chan RunEvent]struct{}{} }
    b.subs[runID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan RunEvent) {
    b.mu.Lock()
    if m := b.subs[runID]; m != nil {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, runID) }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(runID string, evt RunEvent) {
    b.mu.Lock()
    m := b.subs[runID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
