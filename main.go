package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/config"
	"github.com/sindit-io/kgsync/pkg/graphstate"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/notify"
	"github.com/sindit-io/kgsync/pkg/session"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `Usage: kgsync [-config path] <command> [flags]

Commands:
  load     load the workspace graph and print a summary
  export   load the graph and write a YAML snapshot
  watch    load the graph and follow live property values until interrupted
`

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to config.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadFile(*configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("backend", logging.SanitizeURL(cfg.Backend.APIURL)),
		zap.Int("page_size", cfg.Graph.PageSize),
		zap.Bool("streaming", cfg.Graph.StreamingEnabled),
		zap.Bool("redis", cfg.Notifications.RedisEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "load":
		err = runLoad(ctx, cfg, logger)
	case "export":
		err = runExport(ctx, cfg, logger, args)
	case "watch":
		err = runWatch(ctx, cfg, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", cmd), zap.String("error", logging.SanitizeError(err)))
		os.Exit(1)
	}
}

func openSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session.Session, *session.LoadResult, error) {
	s, err := session.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.Load(ctx)
	if err != nil {
		s.Destroy()
		return nil, nil, err
	}
	return s, result, nil
}

func runLoad(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	s, result, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Destroy()

	store := s.Store()
	fmt.Printf("nodes:         %d\n", result.Nodes)
	fmt.Printf("resolved:      %d\n", result.Properties)
	fmt.Printf("relationships: %d\n", result.Relationships)
	fmt.Printf("assets:        %d\n", len(store.GetAllAssets()))
	fmt.Printf("properties:    %d\n", len(store.GetAllProperties()))
	fmt.Printf("connections:   %d\n", len(store.GetAllConnections()))
	fmt.Printf("links:         %d\n", len(store.Links()))
	fmt.Printf("elapsed:       %s\n", result.Elapsed)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, _, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Destroy()

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	return s.Snapshot().WriteYAML(w)
}

func runWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	s, result, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Destroy()

	logger.Info("Watching graph", zap.Int("stored", result.Stored))

	unsubscribe := s.Store().Observe(func(c graphstate.Collection) {
		logger.Debug("Collection changed", zap.String("collection", string(c)))
	})
	defer unsubscribe()

	if cfg.Notifications.RedisEnabled() {
		err := s.Subscribe(ctx, func(n notify.Notification) {
			logger.Info("Notification received",
				zap.String("title", n.Title),
				zap.String("level", string(n.Level)))
		})
		if err != nil {
			logger.Warn("Not following shared notifications", zap.String("error", logging.SanitizeError(err)))
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}
