package history

import (
	"context"
	"sync"
	"time"

	"ChatBuddy/logger"
	model "ChatBuddy/module/chat/model"
	"ChatBuddy/tools/safe"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 2
	saveTimeout      = 5 * time.Second
)

// Pipeline decouples durable writes from the delivery hot path: the relay
// enqueues without blocking and worker goroutines drain the queue on their
// own schedule. A write failure is logged and the message is gone from
// history; the real-time copy was already delivered, so nothing is surfaced
// to either side and nothing is retried.
type Pipeline struct {
	jobs  chan model.ChatMessage
	saver Saver
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPipeline(saver Saver, queueSize, workers int) *Pipeline {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &Pipeline{
		jobs:  make(chan model.ChatMessage, queueSize),
		saver: saver,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		safe.Go(p.worker)
	}
	return p
}

// Enqueue schedules one message for durable storage. Never blocks: a full or
// closed pipeline drops the job and returns false.
func (p *Pipeline) Enqueue(m model.ChatMessage) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- m:
		return true
	default:
		return false
	}
}

// Close stops intake, lets queued jobs finish, and returns once the workers
// are done.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for m := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := p.saver.Save(ctx, &m)
		cancel()
		if err != nil {
			logger.Errorf("[history] chat not saved chat=%s: %v", m.ChatID, err)
			continue
		}
		logger.Infof("[history] chat saved chat=%s", m.ChatID)
	}
}
