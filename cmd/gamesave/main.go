package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tailored-agentic-units/gamesave/codec"
	"github.com/tailored-agentic-units/gamesave/persist"
	"github.com/tailored-agentic-units/gamesave/storage"
	_ "github.com/tailored-agentic-units/gamesave/storage/bolt"
	"github.com/tailored-agentic-units/gamesave/storage/remote"
	_ "github.com/tailored-agentic-units/gamesave/storage/sqlite"
)

const usage = `Usage: gamesave [flags] <command> [args]

Commands:
  inspect <name>   Print the fields stored in a save
  exists <name>    Report whether a save exists
  delete <name>    Remove a save
  path <name>      Print where a save is stored
  list             List stored saves
  serve            Serve the configured storage over Connect RPC

Flags:`

func main() {
	var (
		configFile = flag.String("config", "", "Path to gamesave config JSON file")
		driver     = flag.String("driver", "", "Storage driver: "+strings.Join(storage.Drivers(), ", ")+" (overrides config)")
		path       = flag.String("path", "", "Storage directory or database file (overrides config)")
		url        = flag.String("url", "", "Remote storage base URL (overrides config)")
		addr       = flag.String("addr", ":8080", "Listen address for serve")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := persist.ResolveConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *path != "" {
		cfg.Storage.Path = *path
	}
	if *url != "" {
		cfg.Storage.URL = *url
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := persist.NewFromConfig(cfg, persist.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, engine, logger, *addr, flag.Args()); err != nil {
		engine.Close()
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, engine *persist.Engine, logger *slog.Logger, addr string, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "inspect":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		data, err := engine.Backend().Read(ctx, name)
		if err != nil {
			return err
		}
		stream, err := codec.Decode(data)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s, format v%d, %s)\n", name, humanize.Bytes(uint64(len(data))), stream.Version, compression(stream))
		dumpFields(os.Stdout, stream.Fields, 0)

	case "exists":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		fmt.Println(engine.Exists(ctx, name))

	case "delete":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		return engine.Delete(ctx, name)

	case "path":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		fmt.Println(engine.ResolvePath(name))

	case "list":
		names, err := engine.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case "serve":
		return serve(ctx, engine.Backend(), logger, addr)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func nameArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected exactly one save name")
	}
	return args[0], nil
}

func compression(s *codec.Stream) string {
	if s.Compressed {
		return "snappy"
	}
	return "uncompressed"
}

func serve(ctx context.Context, backend storage.Backend, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(backend, logger))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving storage", "addr", addr, "service", remote.ServiceName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
