package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	match "github.com/0x5487/orderbook-replay"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("obreplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: obreplay [flags] FILE\n\nReplays order instructions from FILE (or - for stdin) and prints book events.\n\n")
		fs.PrintDefaults()
	}

	envPath := fs.String("env", "", "path to a .env file")
	trade := fs.Bool("trade", false, "trade orders that cross the book instead of rejecting them")
	fs.BoolVar(trade, "t", false, "shorthand for -trade")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	dumpBook := fs.Bool("dump-book", false, "log the resting orders of every book at the end of input")
	version := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Fprintln(stdout, match.EngineVersion)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := LoadFromEnv(*envPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trade", "t":
			cfg.Trade = *trade
		case "log-level":
			cfg.LogLevel = *logLevel
		case "dump-book":
			cfg.DumpBook = *dumpBook
		}
	})

	logger, err := newLogger(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	logger = logger.With(zap.String("run_id", xid.New().String()))
	sugar := logger.Sugar()

	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slogLevel = slog.LevelInfo
	}
	match.SetLogger(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slogLevel})))

	path := fs.Arg(0)
	input := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			sugar.Errorw("could_not_open_input", "file", path, "error", err)
			return 1
		}
		defer file.Close()
		input = file
	}

	aggregated := match.NewAggregatedBook()
	replayer, err := match.NewReplayer(input, stdout,
		match.WithQueueSize(cfg.QueueSize),
		match.WithRingSize(cfg.RingSize),
		match.WithBookOptions(match.WithMatchMode(cfg.Trade)),
		match.WithPublisher(aggregated),
	)
	if err != nil {
		sugar.Errorw("invalid_configuration", "queue_size", cfg.QueueSize, "ring_size", cfg.RingSize, "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("replay_started", "file", path, "trade", cfg.Trade, "version", match.EngineVersion)

	stats, err := replayer.Run(ctx)

	for _, marketID := range aggregated.MarketIDs() {
		view, _ := aggregated.Market(marketID)
		sugar.Infow("market_summary",
			"market_id", marketID,
			"accepted", view.Accepted,
			"rejected", view.Rejected,
			"trades", view.TradeCount,
			"volume", view.Volume,
			"notional", view.Notional.String(),
		)
	}

	if cfg.DumpBook && replayer.Engine() != nil {
		for _, snap := range replayer.Engine().Snapshots() {
			logger.Info("book_snapshot", zap.Any("snapshot", snap))
		}
	}

	if err != nil {
		sugar.Errorw("replay_failed", "error", err)
		return 1
	}

	sugar.Infow("replay_completed",
		"instructions", stats.Instructions,
		"events", stats.Events,
		"elapsed", stats.Elapsed,
	)
	return 0
}

// newLogger builds a JSON logger on w in the zap production style.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}
