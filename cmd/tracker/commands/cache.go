package commands

import (
	"fmt"

	"fibre-tracker/internal/cache"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintains the NBN lookup cache.",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Deletes expired status entries from the SQLite cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheDriver != "sqlite" {
			return fmt.Errorf("purge is only needed for the sqlite cache; %s expires entries itself", cfg.CacheDriver)
		}
		store, err := cache.OpenSQLite(cfg.CachePath)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int64("entries", n).Msg("purged expired cache entries")
		return nil
	},
}
