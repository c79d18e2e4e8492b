package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/models"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Regenerate stored embeddings and rebuild the vector index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		return reindex(cmd, models.ProfileKind(strings.ToLower(kind)))
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().StringP("kind", "k", "", "only reindex profiles of this kind (job, project or candidate)")
}

func reindex(cmd *cobra.Command, kind models.ProfileKind) error {
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("unknown profile kind %q", kind)
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.close(log)

	if d.index == nil {
		log.Warn("vector index unavailable, only stored embeddings will be refreshed")
	}

	report, err := d.refresher.Reindex(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to reindex: %w", err)
	}

	log.Info("reindex finished",
		zap.String("kind", string(kind)),
		zap.Int("total", report.Total),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
	)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d profiles failed to reindex", report.Failed, report.Total)
	}

	return nil
}
