// Package main is the entry point for the LED scene engine server.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbernstein/ledscene-go/internal/config"
	"github.com/bbernstein/ledscene-go/internal/control"
	"github.com/bbernstein/ledscene-go/internal/engine"
	"github.com/bbernstein/ledscene-go/internal/healthapi"
	"github.com/bbernstein/ledscene-go/internal/loader"
	"github.com/bbernstein/ledscene-go/internal/scheduler"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
	"github.com/bbernstein/ledscene-go/internal/transport"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg := config.Load()
	printBanner(cfg)

	counters := &telemetry.Counters{}
	manager := engine.NewManager(counters)

	fanOut := transport.NewFanOut(counters)
	dests, watcher, err := config.LoadDestinations(cfg.DestinationsFile)
	if err != nil {
		log.Fatalf("failed to load destinations: %v", err)
	}
	if err := fanOut.SetDestinations(dests); err != nil {
		log.Printf("warning: initial destinations configure failed: %v", err)
	}
	stopWatch, err := watcher.Watch(func(next []transport.Destination) {
		if err := fanOut.SetDestinations(next); err != nil {
			log.Printf("warning: destinations reload failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("warning: destinations hot-reload disabled: %v", err)
		stopWatch = func() {}
	}

	sched := scheduler.New(manager, fanOut)
	sched.Start()

	sceneDefaults := loader.Defaults{LEDCount: cfg.DefaultLEDCount, FPS: cfg.DefaultFPS}
	ingress := control.New(manager, counters, sceneDefaults)
	if err := ingress.Start(cfg.ControlListenAddr); err != nil {
		log.Fatalf("failed to start control ingress: %v", err)
	}

	health := healthapi.New(cfg.HealthAddr, manager, counters)
	healthErrs := health.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Println("shutting down...")
	case err := <-healthErrs:
		log.Printf("health server error, shutting down: %v", err)
	}

	// Reverse-order cleanup.
	health.Stop()
	ingress.Stop()
	sched.Stop()
	stopWatch()
	fanOut.Close()

	log.Println("server stopped")
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	log.Println("============================================")
	log.Println("  LED Scene Engine")
	log.Printf("  Version: %s\n", Version)
	log.Printf("  Build:   %s\n", BuildTime)
	log.Printf("  Commit:  %s\n", GitCommit)
	log.Println("============================================")
	log.Printf("  Environment:    %s\n", cfg.Env)
	log.Printf("  Control listen: %s\n", cfg.ControlListenAddr)
	log.Printf("  Destinations:   %s\n", cfg.DestinationsFile)
	log.Println("============================================")
}
