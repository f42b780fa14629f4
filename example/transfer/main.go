// Example transfer submits a signed balance transfer and waits for its
// Balances.Transfer event.
//
// Signing is out of scope; pass the already signed, SCALE-encoded extrinsic:
//
//	SUBLINE_EXTRINSIC=0x2d0284... go run ./example/transfer
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hedeqiang/subline"
	"github.com/hedeqiang/subline/chain"
	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/internal/hex"
)

// BalancesTransfer is the field layout of Balances.Transfer.
type BalancesTransfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func main() {
	xt, err := hex.Decode(os.Getenv("SUBLINE_EXTRINSIC"))
	if err != nil {
		log.Fatalf("SUBLINE_EXTRINSIC: %v", err)
	}

	transfer := event.MustParseKind("Balances.Transfer")
	dec := decoder.NewJSON(nil)
	if err := dec.Schema().Register(transfer, BalancesTransfer{}); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := subline.Connect(ctx, "ws://127.0.0.1:9944", subline.WithDecoder(dec))
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	rec, err := c.SubmitAndWait(ctx, xt, filter.Kinds(transfer), chain.WithCorrelation())
	if err != nil {
		log.Fatal(err)
	}

	var ev BalancesTransfer
	if err := rec.Bind(&ev); err != nil {
		fmt.Println("Failed to subscribe to Balances::Transfer Event")
		return
	}
	fmt.Printf("Balance transfer success: value: %d\n", ev.Amount)
}
