package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moltbot/rampart/pkg/audit"
	"github.com/moltbot/rampart/pkg/config"
	"github.com/moltbot/rampart/pkg/gateway"
	"github.com/moltbot/rampart/pkg/pipeline"
	"github.com/moltbot/rampart/pkg/signature"
	"github.com/moltbot/rampart/pkg/telemetry"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation gateway",
	Long: "Starts the HTTP gateway serving POST /v1/evaluate. Signature registry,\n" +
		"audit sink, and thresholds come from the config file or RAMPART_* env vars.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.MustValidate()

	snap, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}
	registry := signature.NewRegistry(snap)
	log.Printf("[STARTUP] registry %s (%d signatures)", snap.Version(), snap.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := audit.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open audit sink: %w", err)
	}
	defer sink.Close()
	log.Printf("[STARTUP] audit backend %s", cfg.AuditBackend)

	if cfg.WatchRegistry && cfg.RegistryPath != "" {
		watcher := signature.NewWatcher(registry, cfg.RegistryPath)
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("[REGISTRY] watcher stopped: %v", err)
			}
		}()
	}

	counters := telemetry.NewCounters()
	pl := pipeline.New(cfg, registry, sink, counters)
	server := gateway.NewServer(cfg, pl, registry, counters)

	errc := make(chan error, 1)
	go func() { errc <- server.Listen() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Println("[SHUTDOWN] draining")
		return server.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.New(), nil
	}
	return config.LoadFile(configPath)
}

func loadSnapshot(cfg *config.Config) (*signature.Snapshot, error) {
	if cfg.RegistryPath == "" {
		return signature.Builtin(), nil
	}
	snap, err := signature.LoadFile(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return snap, nil
}
