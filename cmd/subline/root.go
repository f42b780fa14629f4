package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hedeqiang/subline"
	"github.com/hedeqiang/subline/config"
)

type rootOptions struct {
	configFile string
	endpoint   string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *logrus.Logger
}

// NewRootCmd builds the subline command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "subline",
		Short:         "Query a Substrate node and follow its runtime events",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "Path to a YAML config file.")
	flags.StringVar(&o.endpoint, "endpoint", "", "Node endpoint, e.g. ws://127.0.0.1:9944 (overrides config).")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config).")
	flags.StringVar(&o.logFormat, "log-format", "", "Log format: text or json (overrides config).")

	cmd.AddCommand(
		newBlockHashCmd(o),
		newTransferCmd(o),
		newWatchCmd(o),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return err
		}
	}
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if err := cfg.ConfigureLogger(logger); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *rootOptions) connect(ctx context.Context, opts ...subline.Option) (*subline.Client, error) {
	entry := logrus.NewEntry(o.logger)
	opts = append([]subline.Option{subline.WithConfig(o.cfg), subline.WithLogger(entry)}, opts...)
	return subline.Connect(ctx, o.cfg.Endpoint, opts...)
}
