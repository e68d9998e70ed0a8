package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context)

// Poller runs a task on a fixed interval until stopped. Each poller owns
// its goroutine, so pollers of different views never share a schedule.
type Poller struct {
	name     string
	interval time.Duration
	task     Task
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPoller constructs a poller. A non-positive interval falls back to one
// second.
func NewPoller(name string, interval time.Duration, task Task, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the loop. The loop ends when ctx is done or Stop is called.
// Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.loop(runCtx)
}

// Stop cancels the loop and waits for an in-flight task to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Running reports whether the loop has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poll task panicked", slog.String("poller", p.name), slog.Any("panic", r))
		}
	}()
	p.task(ctx)
}
