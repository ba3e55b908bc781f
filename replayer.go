package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0x5487/orderbook-replay/protocol"
)

const (
	defaultQueueSize = 4096
	defaultRingSize  = 8192
	closeTimeout     = 10 * time.Second
)

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithQueueSize sets the capacity of the channel between the parse and apply stages.
func WithQueueSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.queueSize = size
	}
}

// WithRingSize sets the capacity of the output ring buffer (a power of 2).
func WithRingSize(size int64) ReplayerOption {
	return func(r *Replayer) {
		r.ringSize = size
	}
}

// WithPublisher attaches an extra publisher that receives every event after the output stage.
func WithPublisher(p PublishLog) ReplayerOption {
	return func(r *Replayer) {
		r.extra = append(r.extra, p)
	}
}

// WithBookOptions sets the options of every order book created during the replay.
func WithBookOptions(opts ...OrderBookOption) ReplayerOption {
	return func(r *Replayer) {
		r.bookOpts = append(r.bookOpts, opts...)
	}
}

// ReplayStats summarizes a finished replay.
type ReplayStats struct {
	Instructions int64         `json:"instructions"`
	Events       int64         `json:"events"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Replayer runs the three pipeline stages: parse -> apply -> emit.
// The parse stage decodes records from the input, the apply stage feeds them
// one at a time to a MatchingEngine, and the output stage writes the events.
type Replayer struct {
	in        io.Reader
	out       io.Writer
	queueSize int
	ringSize  int64
	extra     []PublishLog
	bookOpts  []OrderBookOption

	engine  *MatchingEngine
	applied atomic.Int64
	running atomic.Bool
}

// NewReplayer creates a Replayer reading instructions from in and writing events to out.
func NewReplayer(in io.Reader, out io.Writer, opts ...ReplayerOption) (*Replayer, error) {
	r := &Replayer{
		in:        in,
		out:       out,
		queueSize: defaultQueueSize,
		ringSize:  defaultRingSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.in == nil || r.out == nil || r.queueSize < 0 ||
		r.ringSize <= 0 || r.ringSize&(r.ringSize-1) != 0 {
		return nil, ErrInvalidParam
	}

	return r, nil
}

// Engine returns the engine of the last run, or nil before Run is called.
func (r *Replayer) Engine() *MatchingEngine {
	return r.engine
}

// Run replays the whole input. It returns once every event has been written.
// A malformed record stops the parse stage: instructions decoded before it are
// still applied and written, then the parse error is returned.
func (r *Replayer) Run(ctx context.Context) (*ReplayStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrShutdown
	}

	start := time.Now()

	output := NewLinePublishLog(r.out, r.ringSize)
	var publisher PublishLog = output
	if len(r.extra) > 0 {
		publisher = append(MultiPublishLog{output}, r.extra...)
	}
	r.engine = NewMatchingEngine(publisher, r.bookOpts...)

	instructions := make(chan *Instruction, r.queueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(instructions)
		return r.parse(gctx, instructions)
	})

	g.Go(func() error {
		// drains the channel even after a parse failure so that earlier input is still emitted
		for ins := range instructions {
			r.engine.Apply(ins)
			r.applied.Add(1)
		}
		return nil
	})

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	closeErr := output.Close(closeCtx)

	stats := &ReplayStats{
		Instructions: r.applied.Load(),
		Events:       output.Published(),
		Elapsed:      time.Since(start),
	}

	logger.Info("replay finished",
		"instructions", stats.Instructions,
		"events", stats.Events,
		"elapsed", stats.Elapsed.String())

	if err := errors.Join(runErr, closeErr); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Replayer) parse(ctx context.Context, instructions chan<- *Instruction) error {
	reader := protocol.NewReader(r.in)

	for {
		ins, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.Error("failed to parse instruction", "error", err)
			return fmt.Errorf("parse input: %w", err)
		}

		select {
		case instructions <- ins:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
