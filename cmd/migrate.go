package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migratePruneDays int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the cache and feedback tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openMigratedStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("migrations applied", zap.String("store", cfg.Store.Driver))

		if migratePruneDays <= 0 {
			return nil
		}
		before := time.Now().AddDate(0, 0, -migratePruneDays)
		n, err := st.DeleteExpired(ctx, before)
		if err != nil {
			return err
		}
		zap.L().Info("pruned cache entries",
			zap.Int64("deleted", n),
			zap.Time("older_than", before),
		)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migratePruneDays, "prune", 0, "delete cache entries older than this many days (0 keeps all)")
	rootCmd.AddCommand(migrateCmd)
}
