package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moltbot/rampart/pkg/audit"
	"github.com/moltbot/rampart/pkg/config"
	"github.com/moltbot/rampart/pkg/content"
	"github.com/moltbot/rampart/pkg/pipeline"
	"github.com/moltbot/rampart/pkg/signature"
	"github.com/moltbot/rampart/pkg/telemetry"
)

var (
	scanTier  string
	scanClass string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanTier, "tier", "unauthenticated", "Trust tier: unauthenticated, signed, paired")
	scanCmd.Flags().StringVar(&scanClass, "class", "chat", "Source class: chat, webhook, email")
}

var scanCmd = &cobra.Command{
	Use:   "scan <text>",
	Short: "Evaluate text and print the decision",
	Long: "Runs one evaluation through the full pipeline and prints the assessment\n" +
		"as JSON. A decision record is written to the configured audit sink.",
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	snap, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sink, err := audit.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open audit sink: %w", err)
	}
	defer sink.Close()

	pl := pipeline.New(cfg, signature.NewRegistry(snap), sink, telemetry.NewCounters())

	out, err := pl.Evaluate(ctx, content.Input{
		RawBytes:      []byte(strings.Join(args, " ")),
		SourceChannel: "cli",
		SourceClass:   config.SourceClass(scanClass),
		Tier:          content.ParseTier(scanTier),
	})
	if err != nil {
		if errors.Is(err, content.ErrSizeExceeded) || errors.Is(err, content.ErrInvalidEncoding) {
			fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
			os.Exit(2)
		}
		return err
	}

	result, _ := json.MarshalIndent(map[string]any{
		"action":     string(out.Decision.Action),
		"score":      out.Assessment.Score,
		"categories": out.Assessment.Categories,
		"penalties":  out.Assessment.Penalties,
		"matches":    audit.RecordMatches(out.Assessment.Matches),
		"record_id":  out.Record.RecordID,
	}, "", "  ")
	fmt.Println(string(result))

	if out.Decision.Action == "block" {
		os.Exit(1)
	}
	return nil
}
