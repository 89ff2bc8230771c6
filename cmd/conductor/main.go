package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/conductor"
	"pipelined.dev/conductor/config"
	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/engine/sim"
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

type app struct {
	args   []string
	stdout io.Writer
	stderr io.Writer
	// newEngine returns engine for the command run.
	newEngine func(logrus.FieldLogger) engine.Engine
}

// environment is shared by commands.
type environment struct {
	cfg     config.Config
	log     *logrus.Logger
	engine  engine.Engine
	metrics *metric.Metrics
	stdout  io.Writer
}

type command interface {
	Name() string
	Help() string
	Register(*flag.FlagSet)
	Run(ctx context.Context, env *environment, args []string) error
}

var (
	successExitCode  = 0
	errorExitCode    = 1
	creationExitCode = -1
	linkExitCode     = -2
	commands         = []command{
		&dynamicCommand{},
		&seekCommand{},
		&swapCommand{},
		&runCommand{},
		&inspectCommand{},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := app{
		args:   os.Args,
		stdout: os.Stdout,
		stderr: os.Stderr,
		newEngine: func(l logrus.FieldLogger) engine.Engine {
			return sim.New(sim.WithLogger(l))
		},
	}
	code := a.run(ctx)
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context) int {
	cmdName, args := parseArgs(a.args)
	cmd := lookup(cmdName)
	if cmd == nil {
		a.printUsage()
		return errorExitCode
	}

	var (
		configPath string
		debug      bool
	)
	flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	flags.StringVar(&configPath, "config", "", "configuration file (yaml, toml or json)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Register(flags)
	if err := flags.Parse(args); err != nil {
		return errorExitCode
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "Configuration failed: %v\n", err)
		return errorExitCode
	}
	if debug {
		cfg.Debug = true
	}
	logger := log.New(log.Config{Debug: cfg.Debug, Format: cfg.LogFormat, Output: a.stderr})
	registry := prometheus.NewRegistry()
	env := &environment{
		cfg:     cfg,
		log:     logger,
		engine:  a.newEngine(logger),
		metrics: metric.New(registry),
		stdout:  a.stdout,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return cmd.Run(gctx, env, flags.Args())
	})
	if cfg.MetricsAddr != "" {
		serveMetrics(gctx, g, cfg.MetricsAddr, registry, logger)
	}
	err = g.Wait()
	code := exitCode(err)
	if err != nil {
		logger.WithError(err).WithField("code", code).Error("command failed")
	}
	return code
}

// serveMetrics starts metrics endpoint, it's shut down when ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, l logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		l.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// exitCode maps command error to process exit code.
func exitCode(err error) int {
	var (
		creationErr *graph.StageCreationError
		linkErr     *graph.StaticLinkError
	)
	switch {
	case err == nil:
		return successExitCode
	case errors.As(err, &creationErr), errors.Is(err, conductor.ErrStateChange):
		return creationExitCode
	case errors.As(err, &linkErr):
		return linkExitCode
	default:
		return errorExitCode
	}
}

func lookup(name string) command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func (a *app) printUsage() {
	fmt.Fprintln(a.stdout, "Conductor orchestrates media pipelines")
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Usage: conductor <command> [-config file] [-debug] [arguments]")
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(a.stdout, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}
