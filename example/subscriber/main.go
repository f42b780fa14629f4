// Example subscriber streams Balances events through a channel with
// logging and metrics middleware until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline"
	"github.com/hedeqiang/subline/chain"
	"github.com/hedeqiang/subline/filter"
	mw "github.com/hedeqiang/subline/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	entry := logrus.NewEntry(logger)

	c, err := subline.Connect(ctx, "ws://127.0.0.1:9944", subline.WithLogger(entry), subline.WithBuffer(128))
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	metrics := mw.NewMetrics()
	records, errs := c.Records(ctx, filter.Pallet("Balances"),
		chain.WithMiddleware(metrics, mw.NewLogger(entry)),
		chain.OnDecodeError(metrics.DecodeFailed),
	)

	for rec := range records {
		fmt.Println(rec)
	}
	if err := <-errs; err != nil {
		log.Println("watch ended:", err)
	}

	fmt.Printf("delivered=%d dropped=%d undecoded=%d\n",
		metrics.Delivered(), metrics.Dropped(), metrics.Undecoded())
}
