package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mql/internal/infrastructure/config"
	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/infrastructure/metrics"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath  string
	host        string
	port        int
	prefix      string
	debug       bool
	metricsAddr string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mql",
		Short:         "Distributed logging over MQTT",
		Long:          "mql renders log records published by mql units and adjusts their levels at runtime.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.host, "host", "", "MQTT broker host (default $MQTT_HOST or 127.0.0.1)")
	flags.IntVarP(&opts.port, "port", "p", 0, "MQTT broker port (default $MQTT_PORT or 1883)")
	flags.StringVarP(&opts.prefix, "prefix", "x", "", "topic prefix (default $MQL_PREFIX or mql)")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newListenCmd(opts),
		newLevelCmd(opts),
		newCountCmd(opts),
		newEmitCmd(opts),
	)

	return root
}

// override adjusts configuration for one command before validation.
type override func(cfg *config.Config) error

// loadConfig resolves configuration from defaults, the optional file,
// the environment, the command-line flags and finally the command's
// own overrides.
func (o *rootOptions) loadConfig(overrides ...override) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if o.host != "" {
		cfg.MQTT.Broker.Host = o.host
	}
	if o.port != 0 {
		cfg.MQTT.Broker.Port = o.port
	}
	if o.prefix != "" {
		cfg.MQL.Prefix = o.prefix
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metricsAddr
	}
	for _, apply := range overrides {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// app is the resolved runtime shared by a command's execution.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	out     io.Writer
}

// newApp loads configuration and builds the logger and metrics.
func (o *rootOptions) newApp(cmd *cobra.Command, overrides ...override) (*app, error) {
	cfg, err := o.loadConfig(overrides...)
	if err != nil {
		return nil, err
	}

	// Diagnostics stay off stdout unless asked for, so rendered records
	// can be piped.
	logger := logging.New(cfg.Logging, version)
	if cfg.Logging.Output != "stdout" {
		logger = logging.NewWithWriter(cfg.Logging, version, cmd.ErrOrStderr())
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    cmd.OutOrStdout(),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}
	return a, nil
}
