package main

import (
	"context"
	"os"

	"github.com/bher20/shipratemanager/internal/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("shipratemanager failed")
		os.Exit(1)
	}
}
