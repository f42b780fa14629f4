// Package main looks up the hash of block 1 on a local node.
//
// Usage:
//
//	go run ./example
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hedeqiang/subline"
)

func main() {
	endpoint := os.Getenv("SUBLINE_ENDPOINT")
	if endpoint == "" {
		endpoint = "ws://127.0.0.1:9944"
	}

	ctx := context.Background()
	c, err := subline.Connect(ctx, endpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	const blockNumber = 1
	hash, found, err := c.BlockHash(ctx, blockNumber)
	if err != nil {
		log.Fatal(err)
	}
	if found {
		fmt.Printf("Block hash for block number %d: %s\n", blockNumber, hash.Hex())
	} else {
		fmt.Printf("Block number %d not found.\n", blockNumber)
	}
}
