package match

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// PublishLog is an interface for publishing order book logs.
//
// IMPORTANT: Implementations must either:
//  1. Process logs synchronously before returning, OR
//  2. Clone the BookLog data before returning
//
// The caller recycles BookLog objects to a sync.Pool after Publish returns,
// so any asynchronous processing must work with cloned data.
type PublishLog interface {
	Publish(...*BookLog)
}

// MemoryPublishLog stores logs in memory, useful for testing.
type MemoryPublishLog struct {
	mu   sync.RWMutex
	Logs []*BookLog
}

// NewMemoryPublishLog creates a new MemoryPublishLog.
func NewMemoryPublishLog() *MemoryPublishLog {
	return &MemoryPublishLog{
		Logs: make([]*BookLog, 0),
	}
}

// Publish appends copies of the logs to the in-memory slice.
func (m *MemoryPublishLog) Publish(logs ...*BookLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range logs {
		cpy := new(BookLog)
		*cpy = *log
		m.Logs = append(m.Logs, cpy)
	}
}

// Count returns the number of logs stored.
func (m *MemoryPublishLog) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Logs)
}

// Get returns the log at the specified index.
func (m *MemoryPublishLog) Get(index int) *BookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Logs[index]
}

// Lines renders every stored log as an output line.
func (m *MemoryPublishLog) Lines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := make([]string, len(m.Logs))
	for i, log := range m.Logs {
		lines[i] = log.String()
	}
	return lines
}

// Reset drops all stored logs.
func (m *MemoryPublishLog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = m.Logs[:0]
}

// DiscardPublishLog discards all logs, useful for benchmarking.
type DiscardPublishLog struct {
}

// NewDiscardPublishLog creates a new DiscardPublishLog.
func NewDiscardPublishLog() *DiscardPublishLog {
	return &DiscardPublishLog{}
}

// Publish does nothing.
func (p *DiscardPublishLog) Publish(logs ...*BookLog) {

}

// MultiPublishLog fans logs out to several publishers, in order.
type MultiPublishLog []PublishLog

// Publish forwards the logs to every publisher.
func (m MultiPublishLog) Publish(logs ...*BookLog) {
	for _, p := range m {
		p.Publish(logs...)
	}
}

// LinePublishLog is the output stage: it renders every log as one text line and
// hands it to a RingBuffer whose consumer writes the lines to an io.Writer.
// Publish must be called from a single goroutine.
type LinePublishLog struct {
	ring      *RingBuffer[string]
	writer    *lineWriter
	published atomic.Int64
}

type lineWriter struct {
	w   *bufio.Writer
	err error
}

func (lw *lineWriter) OnEvent(line string) {
	if lw.err != nil {
		return
	}
	if _, err := lw.w.WriteString(line); err != nil {
		lw.err = err
		return
	}
	lw.err = lw.w.WriteByte('\n')
}

// NewLinePublishLog creates the output stage and starts its consumer.
// capacity must be a power of 2.
func NewLinePublishLog(w io.Writer, capacity int64) *LinePublishLog {
	writer := &lineWriter{w: bufio.NewWriter(w)}
	ring := NewRingBuffer[string](capacity, writer)
	ring.Start()

	return &LinePublishLog{
		ring:   ring,
		writer: writer,
	}
}

// Publish formats the logs and enqueues the lines.
func (p *LinePublishLog) Publish(logs ...*BookLog) {
	for _, log := range logs {
		p.ring.Publish(log.String())
		p.published.Add(1)
	}
}

// Published returns the number of lines handed to the output stage.
func (p *LinePublishLog) Published() int64 {
	return p.published.Load()
}

// Pending returns the number of lines published but not yet written.
func (p *LinePublishLog) Pending() int64 {
	return p.ring.GetPendingEvents()
}

// Close waits until every published line is written, flushes the writer and
// returns the first write error.
func (p *LinePublishLog) Close(ctx context.Context) error {
	logger.Debug("draining output", "pending", p.Pending())

	if err := p.ring.Shutdown(ctx); err != nil {
		return err
	}

	if p.writer.err != nil {
		return p.writer.err
	}
	if err := p.writer.w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
