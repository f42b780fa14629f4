package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hedeqiang/subline/chain"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/internal/hex"
)

type transferOptions struct {
	extrinsic   string
	event       string
	field       string
	correlate   bool
	waitTimeout time.Duration
}

func newTransferCmd(o *rootOptions) *cobra.Command {
	t := &transferOptions{}

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Submit a signed transfer and wait for its event",
		Long: `Submit a signed, SCALE-encoded balance transfer and wait for the first
matching event. Without --correlate the event may belong to another sender's
transfer included first.

If the event arrives without the field named by --field, the command prints
"Failed to subscribe to <Pallet>::<Name> Event" and exits with status 1, so
scripts can tell it apart from a confirmed transfer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return t.run(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&t.extrinsic, "extrinsic", "", "Signed extrinsic as 0x-prefixed hex.")
	flags.StringVar(&t.event, "event", "Balances.Transfer", "Event to wait for, as Pallet.Name.")
	flags.StringVar(&t.field, "field", "amount", "Event field printed as the transfer value.")
	flags.BoolVar(&t.correlate, "correlate", false, "Accept only the event of the submitted extrinsic.")
	flags.DurationVar(&t.waitTimeout, "wait-timeout", 0, "How long to wait for the event (default from config).")
	_ = cmd.MarkFlagRequired("extrinsic")
	return cmd
}

func (t *transferOptions) run(cmd *cobra.Command, o *rootOptions) error {
	xt, err := hex.Decode(t.extrinsic)
	if err != nil {
		return fmt.Errorf("--extrinsic: %w", err)
	}
	kind, err := event.ParseKind(t.event)
	if err != nil {
		return fmt.Errorf("--event: %w", err)
	}

	wait := t.waitTimeout
	if wait == 0 {
		wait = o.cfg.WaitTimeout
	}

	ctx := cmd.Context()
	c, err := o.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var opts []chain.SubscribeOption
	if t.correlate {
		opts = append(opts, chain.WithCorrelation())
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	rec, err := c.SubmitAndWait(waitCtx, xt, filter.Kinds(kind), opts...)
	if err != nil {
		return err
	}

	value, err := fieldValue(rec, t.field)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Failed to subscribe to %s::%s Event\n", kind.Pallet, kind.Name)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Balance transfer success: value: %s\n", value)
	return nil
}

func fieldValue(rec event.Record, field string) (string, error) {
	var fields map[string]json.RawMessage
	if err := rec.Bind(&fields); err != nil {
		return "", err
	}
	raw, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("%s has no field %q", rec.Kind, field)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("%s field %q is not a scalar: %s", rec.Kind, field, raw)
}
