package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drivebase/catalog-cli/internal/catalog"
	"github.com/drivebase/catalog-cli/internal/ingest"
	"github.com/drivebase/catalog-cli/internal/resolve"
)

var (
	importMakes      []string
	importSkipMakes  int
	importLimitMakes int
	importWorkers    int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the vehicle catalog make by make",
	Long: `Import fetches catalog pages for each selected manufacturer,
normalizes every record, and upserts the results. Each page commits
atomically, so an interrupted run resumes safely on the next invocation.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringSliceVar(&importMakes, "makes", nil,
		"import only these makes (case-insensitive, comma-separated)")
	importCmd.Flags().IntVar(&importSkipMakes, "skip-makes", 0,
		"skip the first N makes of the worklist")
	importCmd.Flags().IntVar(&importLimitMakes, "limit-makes", 0,
		"import at most N makes (0 = all)")
	importCmd.Flags().IntVar(&importWorkers, "workers", 0,
		"number of makes imported concurrently (0 = config default)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zap.L().With(zap.String("component", "import"))

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	fuels, err := st.FuelTypes(ctx)
	if err != nil {
		return err
	}
	transmissions, err := st.TransmissionTypes(ctx)
	if err != nil {
		return err
	}
	if len(fuels) == 0 || len(transmissions) == 0 {
		return eris.New("import: fuel and transmission types are not seeded, run \"catalog-cli seed\" first")
	}

	worklist, unmatched, err := catalog.SelectMakes(importMakes, importSkipMakes, importLimitMakes)
	if err != nil {
		return err
	}
	for _, name := range unmatched {
		logger.Warn("unknown make requested", zap.String("make", name))
	}
	if len(worklist) == 0 {
		return eris.New("import: no makes selected")
	}

	client := catalog.NewClient(catalog.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		PageSize:  cfg.Catalog.PageSize,
		UserAgent: cfg.Catalog.UserAgent,
		Timeout:   time.Duration(cfg.Catalog.TimeoutSecs) * time.Second,
		PageDelay: time.Duration(cfg.Catalog.PageDelayMS) * time.Millisecond,
	})

	norm := ingest.NewNormalizer(resolve.New(fuels, transmissions))
	fetcher := ingest.NewPartitionFetcher(client, st, norm,
		time.Duration(cfg.Import.RetryIntervalSecs)*time.Second,
		cfg.Import.ProgressEvery)

	workers := importWorkers
	if workers <= 0 {
		workers = cfg.Import.Workers
	}
	orch := ingest.NewOrchestrator(fetcher, st, workers)

	logger.Info("starting import",
		zap.Int("makes", len(worklist)),
		zap.Int("workers", workers))

	summary, err := orch.Run(ctx, worklist)
	if summary != nil {
		fmt.Printf("makes: %d/%d  processed: %d  succeeded: %d  failed: %d  skipped: %d  elapsed: %s\n",
			summary.Partitions, summary.PartitionsTotal,
			summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped,
			summary.Elapsed.Round(time.Second))
	}
	return err
}
