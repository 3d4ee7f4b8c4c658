package commands

import (
	"fibre-tracker/internal/announce"
	"fibre-tracker/internal/repository"
	"fibre-tracker/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	registryCmd.AddCommand(registryRebuildCmd)
	rootCmd.AddCommand(registryCmd)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manages the combined suburb registry.",
}

var registryRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuilds the registry from the address database, the announcement page and existing results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, closeDB, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		results := repository.NewResultStore(cfg.ResultsDir)
		builder := service.NewRegistryBuilder(repo, announce.NewFetcher(cfg.AnnouncedURL, cfg.NBNTimeout), results)
		reg, err := builder.Build(ctx)
		if err != nil {
			return err
		}

		store := repository.NewRegistryStore(cfg.ResultsDir)
		if err := store.Save(reg); err != nil {
			return err
		}
		if err := store.SaveProgress(service.ProgressReport(reg)); err != nil {
			return err
		}
		log.Info().Str("path", store.Path()).Int("suburbs", reg.Len()).Msg("registry written")
		return nil
	},
}
