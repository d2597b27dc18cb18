package service

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

const defaultBatchDelay = 2 * time.Second

type pendingMessage struct {
	msg model.Message
	ts  time.Time
}

// MessageBatcher holds inbound webhook messages briefly and flushes them in
// timestamp order. Webhook deliveries can arrive out of order; every push
// restarts the quiet-period timer, so a burst is sorted and delivered as one
// batch once the platform goes quiet.
type MessageBatcher struct {
	mu      sync.Mutex
	pending []pendingMessage
	timer   *time.Timer
	delay   time.Duration
	deliver func(model.Message)
	closed  bool
}

// NewMessageBatcher creates a batcher that hands flushed messages to deliver.
// A delay of 0 uses the default 2s quiet period.
func NewMessageBatcher(delay time.Duration, deliver func(model.Message)) *MessageBatcher {
	if delay <= 0 {
		delay = defaultBatchDelay
	}
	return &MessageBatcher{delay: delay, deliver: deliver}
}

// Push queues a message and (re)schedules the flush.
func (b *MessageBatcher) Push(msg model.Message, eventTimestamp time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.pending = append(b.pending, pendingMessage{msg: msg, ts: eventTimestamp})

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// Close stops the timer and flushes whatever is still pending.
func (b *MessageBatcher) Close() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.take()
	b.mu.Unlock()

	b.dispatch(batch)
}

func (b *MessageBatcher) flush() {
	b.mu.Lock()
	b.timer = nil
	batch := b.take()
	b.mu.Unlock()

	b.dispatch(batch)
}

// take drains the pending queue. Caller must hold b.mu.
func (b *MessageBatcher) take() []pendingMessage {
	batch := b.pending
	b.pending = nil
	return batch
}

func (b *MessageBatcher) dispatch(batch []pendingMessage) {
	if len(batch) == 0 {
		return
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].ts.Before(batch[j].ts)
	})

	log.Printf("[batch] delivering %d message(s)", len(batch))
	for _, p := range batch {
		b.deliver(p.msg)
	}
}
