package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor"
	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/graph"
)

// dynamicCommand decodes uri and links audio pad once it's exposed.
type dynamicCommand struct{}

func (cmd *dynamicCommand) Name() string { return "dynamic" }

func (cmd *dynamicCommand) Help() string {
	return "Decode uri and play its audio through a dynamically linked chain"
}

func (cmd *dynamicCommand) Register(*flag.FlagSet) {}

func (cmd *dynamicCommand) Run(ctx context.Context, env *environment, args []string) error {
	uri := resolveURI(args, env.cfg.URI, env.log)
	return play(ctx, env, dynamicDescriptor(env.cfg.PipelineName, uri))
}

// seekCommand plays uri and seeks forward once playback passes threshold.
type seekCommand struct{}

func (cmd *seekCommand) Name() string { return "seek" }

func (cmd *seekCommand) Help() string {
	return "Play uri, display position and seek forward once"
}

func (cmd *seekCommand) Register(*flag.FlagSet) {}

func (cmd *seekCommand) Run(ctx context.Context, env *environment, args []string) error {
	uri := resolveURI(args, env.cfg.URI, env.log)
	return play(ctx, env, playbinDescriptor(env.cfg.PipelineName, uri),
		conductor.WithOutput(env.stdout),
		conductor.WithPoller(pollerConfig(env)),
	)
}

// swapCommand replaces live test source periodically.
type swapCommand struct{}

func (cmd *swapCommand) Name() string { return "swap" }

func (cmd *swapCommand) Help() string {
	return "Play test pattern and swap the source with a new pattern periodically"
}

func (cmd *swapCommand) Register(*flag.FlagSet) {}

func (cmd *swapCommand) Run(ctx context.Context, env *environment, _ []string) error {
	c := conductor.DefaultSwapperConfig()
	c.Interval = env.cfg.SwapInterval
	c.Modulus = env.cfg.PatternModulus
	return play(ctx, env, swapDescriptor(env.cfg.PipelineName), conductor.WithSwapper(c))
}

// runCommand plays graph described in yaml file.
type runCommand struct {
	graph string
	poll  bool
	swap  string
}

func (cmd *runCommand) Name() string { return "run" }

func (cmd *runCommand) Help() string {
	return "Build and play graph described in yaml file"
}

func (cmd *runCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.graph, "graph", "", "yaml graph descriptor (required)")
	fs.BoolVar(&cmd.poll, "poll", false, "display position and seek forward once")
	fs.StringVar(&cmd.swap, "swap", "", "swap source stage periodically, format source:sink")
}

func (cmd *runCommand) Run(ctx context.Context, env *environment, _ []string) error {
	if cmd.graph == "" {
		return errors.New("missing -graph required flag")
	}
	d, err := graph.LoadFile(cmd.graph)
	if err != nil {
		return err
	}
	var options []conductor.Option
	if cmd.poll {
		options = append(options, conductor.WithOutput(env.stdout), conductor.WithPoller(pollerConfig(env)))
	}
	if cmd.swap != "" {
		source, sink, ok := strings.Cut(cmd.swap, ":")
		if !ok || source == "" || sink == "" {
			return fmt.Errorf("invalid -swap value %q, expected source:sink", cmd.swap)
		}
		c := conductor.DefaultSwapperConfig()
		c.Interval = env.cfg.SwapInterval
		c.Modulus = env.cfg.PatternModulus
		c.Source, c.Sink, c.Kind = source, sink, ""
		options = append(options, conductor.WithSwapper(c))
	}
	return play(ctx, env, d, options...)
}

// inspectCommand prints streams of uri and stops.
type inspectCommand struct{}

func (cmd *inspectCommand) Name() string { return "inspect" }

func (cmd *inspectCommand) Help() string {
	return "Print video, audio and text streams of uri"
}

func (cmd *inspectCommand) Register(*flag.FlagSet) {}

func (cmd *inspectCommand) Run(ctx context.Context, env *environment, args []string) error {
	uri := resolveURI(args, env.cfg.URI, env.log)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var werr error
	err := play(ctx, env, playbinDescriptor(env.cfg.PipelineName, uri),
		conductor.WithStreamHandler(func(streams []engine.StreamInfo) {
			werr = conductor.WriteStreams(env.stdout, streams)
			cancel()
		}),
	)
	if err != nil {
		return err
	}
	return werr
}

// play builds the graph and runs session until it's finished.
func play(ctx context.Context, env *environment, d graph.Descriptor, options ...conductor.Option) error {
	env.log.WithField("graph", d.String()).Debug("building graph")
	g, err := graph.Build(env.engine, d)
	if err != nil {
		return err
	}
	options = append([]conductor.Option{
		conductor.WithLogger(env.log),
		conductor.WithMetrics(env.metrics),
	}, options...)
	s, err := conductor.New(env.engine, g, options...)
	if err != nil {
		if terr := g.Teardown(); terr != nil {
			env.log.WithError(terr).Warn("unable to release graph")
		}
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			env.log.WithError(cerr).Warn("unable to release graph")
		}
	}()
	return s.Run(ctx)
}

func pollerConfig(env *environment) conductor.PollerConfig {
	return conductor.PollerConfig{
		Interval:  env.cfg.PollInterval,
		Threshold: env.cfg.SeekThreshold,
		Target:    env.cfg.SeekTarget,
	}
}

// resolveURI returns the first argument if it's a valid uri. Existing
// local paths are converted to file uris. Default is returned otherwise.
func resolveURI(args []string, def string, l logrus.FieldLogger) string {
	if len(args) == 0 {
		l.Info("missing uri argument, use default uri instead")
		return def
	}
	arg := args[0]
	if _, err := os.Stat(arg); err == nil {
		if abs, err := filepath.Abs(arg); err == nil {
			return (&url.URL{Scheme: "file", Path: abs}).String()
		}
	}
	u, err := url.Parse(arg)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Path == "" && u.Opaque == "") {
		l.WithField("uri", arg).Info("invalid uri argument, use default uri instead")
		return def
	}
	return arg
}
