package main

import (
	"context"
	"os"

	"sellerops/internal/logging"
)

func main() {
	logging.Init()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
