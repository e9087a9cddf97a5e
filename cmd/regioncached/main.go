package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaonanln/regioncache/config"
	"github.com/xiaonanln/regioncache/locking"
	"github.com/xiaonanln/regioncache/region"
)

func main() {
	configPath := flag.String("config", "regioncache.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Build the configured regions
	regions := make([]*region.Region, 0, len(cfg.Regions))
	for _, rc := range cfg.Regions {
		r := region.New(region.Config{
			Name:    rc.Name,
			MaxLife: rc.MaxLife.Std(),
			Locking: locking.Config{
				Name:          rc.Name,
				IdleThreshold: cfg.Locking.IdleThreshold.Std(),
				ReapInterval:  cfg.Locking.ReapInterval.Std(),
			},
		}, nil)
		regions = append(regions, r)
	}

	log.Printf("Started %d cache regions", len(regions))

	// Expose Prometheus metrics if configured
	if cfg.Metrics.HTTPAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("Serving metrics on %s", cfg.Metrics.HTTPAddr)
			if err := http.ListenAndServe(cfg.Metrics.HTTPAddr, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Println("Received shutdown signal")

	for _, r := range regions {
		r.Shutdown()
	}

	log.Println("All regions shut down")
}
