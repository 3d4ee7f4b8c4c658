package commands

import (
	"fmt"
	"time"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/nbn"
	"fibre-tracker/internal/repository"
	"fibre-tracker/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	processThreads int
	processBudget  time.Duration
)

func init() {
	processCmd.Flags().IntVarP(&processThreads, "threads", "n", 0, "Number of concurrent workers (1-40, default from THREADS).")
	processCmd.Flags().DurationVar(&processBudget, "budget", 0, "Stop starting new suburbs after this long (default from RUN_BUDGET).")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [suburb state]",
	Short: "Fetches NBN tech and upgrade status for a suburb, or for scheduled suburbs.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or a suburb and a state, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		threads := cfg.Threads
		if cmd.Flags().Changed("threads") {
			threads = processThreads
		}
		if threads < 1 || threads > service.MaxWorkers {
			return fmt.Errorf("--threads must be between 1 and %d", service.MaxWorkers)
		}
		budget := cfg.RunBudget
		if cmd.Flags().Changed("budget") {
			budget = processBudget
		}

		var target *models.Target
		if len(args) == 2 {
			t := models.NewTarget(args[0], args[1])
			target = &t
		}

		repo, closeDB, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		statusCache, err := openStatusCache(ctx)
		if err != nil {
			return err
		}
		defer statusCache.Close()

		registry := repository.NewRegistryStore(cfg.ResultsDir)
		results := repository.NewResultStore(cfg.ResultsDir)
		opts := nbnOptions()

		pipeline := service.NewPipeline(func() service.AddressEnricher {
			return service.NewEnricher(nbn.NewClient(opts), statusCache)
		}, threads, func(done, total int) {
			if done%service.ChunkSize == 0 || done == total {
				log.Info().Msgf("Completed %d/%d requests", done, total)
			}
		})

		processor := service.NewProcessor(service.ProcessorDeps{
			Scheduler: service.NewScheduler(registry, cfg.RefreshDays),
			Addresses: repo,
			Results:   results,
			Cache:     statusCache,
			Pipeline:  pipeline,
			Registry:  service.NewRegistryUpdater(registry),
		}, budget)

		start := time.Now()
		processed, err := processor.Run(ctx, target)
		log.Info().Int("suburbs", processed).Dur("elapsed", time.Since(start)).Msg("run finished")
		return err
	},
}
