package main

import (
	"fmt"
	"nodeconductor/cli/pkg/cmd"
	"nodeconductor/internal/config"
	"nodeconductor/logger"
	"os"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Mode); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cmd.New(cfg).Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
