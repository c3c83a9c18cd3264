package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/logger"
	"trivia-quiz/internal/source/opentdb"
	pgsource "trivia-quiz/internal/source/postgres"
)

// NewSeedCmd pulls questions from the upstream trivia API into the local
// Postgres question bank.
func NewSeedCmd(configPath *string) *cobra.Command {
	var count int
	var category int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank from the upstream trivia API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, count, category)
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "number of questions to fetch")
	cmd.Flags().IntVar(&category, "category", 0, "category to fetch (0 = any)")
	return cmd
}

func runSeed(ctx context.Context, configPath string, count, category int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	if category == 0 {
		category = cfg.Quiz.Category
	}
	timeout := config.TTLDuration(cfg.Source.Timeout, 15*time.Second)
	client := opentdb.NewClient(cfg.Source.Endpoint, category, &http.Client{Timeout: timeout})

	// The public API caps a single request at 50 questions.
	records, err := client.Fetch(ctx, count)
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	bank := pgsource.NewBank(pool, category)
	inserted := 0
	for _, rec := range records {
		if err := bank.Insert(ctx, category, rec); err != nil {
			log.Warn().Err(err).Msg("skipping record")
			continue
		}
		inserted++
	}
	log.Info().Int("inserted", inserted).Int("fetched", len(records)).Msg("question bank seeded")
	return nil
}
