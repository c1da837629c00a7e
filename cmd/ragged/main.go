// Command ragged inspects and transforms keyed ragged batches stored as YAML.
package main

import (
	"context"
	"log"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	log.SetFlags(0)
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
