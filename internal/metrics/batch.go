package metrics

import (
	"sync"
	"time"

	"codeberg.org/mutker/turbinemon/internal/logger"
)

// batcher buffers snapshots and hands them to write in batches, either when
// the buffer reaches size or when the flush interval elapses.
type batcher struct {
	mu     sync.Mutex
	buffer []*Snapshot
	size   int
	write  func([]*Snapshot) error
	logger logger.Logger

	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func newBatcher(size, timeoutSeconds int, write func([]*Snapshot) error, log logger.Logger) *batcher {
	if size < 1 {
		size = 1
	}

	b := &batcher{
		buffer: make([]*Snapshot, 0, size),
		size:   size,
		write:  write,
		logger: log,
	}

	if size > 1 && timeoutSeconds > 0 {
		b.flushTicker = time.NewTicker(time.Duration(timeoutSeconds) * time.Second)
		b.shutdownChan = make(chan struct{})
		b.flushDoneChan = make(chan struct{})
		go b.flusher()
	}

	return b
}

func (b *batcher) add(snapshot *Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = append(b.buffer, snapshot)
	if len(b.buffer) >= b.size {
		return b.flushLocked()
	}

	return nil
}

func (b *batcher) flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.flushLocked()
}

func (b *batcher) flushLocked() error {
	if len(b.buffer) == 0 {
		return nil
	}

	if err := b.write(b.buffer); err != nil {
		// keep the batch for the next attempt, but never grow without bound
		if over := len(b.buffer) - maxBufferedReports; over > 0 {
			b.logger.Warn().Int("dropped", over).Msg("Metrics buffer full, dropping oldest reports")
			b.buffer = append(b.buffer[:0], b.buffer[over:]...)
		}
		return err
	}

	b.logger.Debug().Int("records", len(b.buffer)).Msg("Flushed metrics to database")
	b.buffer = b.buffer[:0]

	return nil
}

func (b *batcher) flusher() {
	defer close(b.flushDoneChan)

	for {
		select {
		case <-b.flushTicker.C:
			if err := b.flush(); err != nil {
				b.logger.Error().Err(err).Msg("Periodic metrics flush failed")
			}
		case <-b.shutdownChan:
			return
		}
	}
}

// close stops the flusher and writes whatever is left.
func (b *batcher) close() error {
	if b.flushTicker != nil {
		close(b.shutdownChan)
		b.flushTicker.Stop()
		<-b.flushDoneChan
	}

	return b.flush()
}
