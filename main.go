package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kinship-media/kinship/internal"
	"github.com/kinship-media/kinship/pkg/logger"
)

var log = logger.Get("Main")

// main loads the user configuration, constructs the Kinship server and
// runs it until an interrupt is received.
func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose logging output")
	flag.Parse()

	if *verbose {
		logger.SetMinLoggingLevel(logger.VERBOSE.Level())
	}

	path := *configPath
	if path == "" {
		defaultPath, err := internal.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to determine config path: %v\n", err)
		}
		path = defaultPath
	}

	config := internal.KinshipConfig{}
	if err := config.LoadFromFile(path); err != nil {
		log.Fatalf("Failed to load configuration from %s: %v\n", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-exitChannel
		log.Emit(logger.INFO, "Interrupt detected! Shutting down...\n")
		cancel()
	}()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Fatalf("Kinship stopped due to error: %v\n", err)
	}

	log.Emit(logger.STOP, "Kinship shut down cleanly\n")
}
