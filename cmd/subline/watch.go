package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hedeqiang/subline/chain"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/middleware"
)

type watchOptions struct {
	events   []string
	pallets  []string
	throttle time.Duration
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	w := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print runtime events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return w.run(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&w.events, "event", nil, "Only print these events (Pallet.Name); repeatable.")
	flags.StringSliceVar(&w.pallets, "pallet", nil, "Only print events of these pallets; repeatable.")
	flags.DurationVar(&w.throttle, "throttle", 0, "Print at most one event of each kind per interval.")
	return cmd
}

func (w *watchOptions) filter() (filter.Filter, error) {
	var matchers []filter.Filter
	if len(w.events) > 0 {
		kinds := make([]event.Kind, 0, len(w.events))
		for _, s := range w.events {
			k, err := event.ParseKind(s)
			if err != nil {
				return nil, fmt.Errorf("--event: %w", err)
			}
			kinds = append(kinds, k)
		}
		matchers = append(matchers, filter.Kinds(kinds...))
	}
	for _, p := range w.pallets {
		matchers = append(matchers, filter.Pallet(p))
	}
	if len(matchers) == 0 {
		return filter.Any(), nil
	}
	return filter.AnyOf(matchers...), nil
}

func (w *watchOptions) run(cmd *cobra.Command, o *rootOptions) error {
	f, err := w.filter()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := o.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	metrics := middleware.NewMetrics()
	mws := []middleware.Middleware{metrics, middleware.NewLogger(logrus.NewEntry(o.logger))}
	if w.throttle > 0 {
		mws = append(mws, middleware.NewRateLimit(w.throttle))
	}

	out := cmd.OutOrStdout()
	err = c.Watch(ctx, f, func(rec event.Record) {
		fmt.Fprintln(out, rec)
	}, chain.WithMiddleware(mws...), chain.OnDecodeError(metrics.DecodeFailed))

	entry := o.logger.WithFields(logrus.Fields{
		"delivered": metrics.Delivered(),
		"dropped":   metrics.Dropped(),
		"undecoded": metrics.Undecoded(),
	})
	for _, kc := range metrics.ByKind() {
		entry = entry.WithField(kc.Kind.String(), kc.Count)
	}
	entry.Info("watch ended")
	return err
}
