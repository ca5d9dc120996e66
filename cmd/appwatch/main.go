// Command appwatch tracks App Store listing availability.
package main

import (
	"context"
	"os"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/cli"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Set at build time via ldflags: -X main.version=1.0.0
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(context.Background())
	logger.Sync()
	if err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
