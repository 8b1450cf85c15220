package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/archive"
	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/internal/populate"
)

var (
	populateCitiesFile string
	populateTypes      []string
	populateLimit      int
	populateArchive    bool
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Seed the cache by searching every city through a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("archive") {
			cfg.Populate.Archive = populateArchive
		}
		if populateCitiesFile != "" {
			cfg.Populate.CitiesFile = populateCitiesFile
		}
		if err := cfg.Validate("populate"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cities, err := populate.LoadCities(ctx, cfg.Populate.CitiesFile)
		if err != nil {
			return err
		}
		if populateLimit > 0 && populateLimit < len(cities) {
			cities = cities[:populateLimit]
		}

		types := make([]model.SearchType, 0, len(populateTypes))
		for _, raw := range populateTypes {
			t, err := model.ParseSearchType(raw)
			if err != nil {
				return err
			}
			types = append(types, t)
		}

		var sink populate.Archiver
		if cfg.Populate.Archive {
			s, err := archive.NewFromConfig(cfg.Archive)
			if err != nil {
				return err
			}
			if err := s.EnsureBucket(ctx); err != nil {
				return err
			}
			sink = s
		}

		runner, err := populate.NewFromConfig(cfg.Populate, sink, populate.WithTypes(types...))
		if err != nil {
			return err
		}

		zap.L().Info("populate: starting",
			zap.Int("cities", len(cities)),
			zap.String("base_url", cfg.Populate.BaseURL),
			zap.Bool("archive", cfg.Populate.Archive),
		)
		sum, err := runner.Run(ctx, cities)

		fmt.Fprintf(cmd.OutOrStdout(), "cities: %d resolved: %d searches: %d empty: %d failed: %d places: %d archived: %d (%s)\n",
			sum.Cities, sum.CitiesResolved, sum.Searches, sum.Empty, sum.Failed, sum.Places, sum.Archived, sum.Duration.Round(time.Second))
		for _, c := range sum.FailedCities {
			fmt.Fprintf(cmd.OutOrStdout(), "unresolved: %s\n", c)
		}
		return err
	},
}

func init() {
	f := populateCmd.Flags()
	f.StringVar(&populateCitiesFile, "cities-file", "", "city list, one \"city[, country]\" per line (default built-in list)")
	f.StringSliceVar(&populateTypes, "types", nil, "establishment types to search (default all)")
	f.IntVar(&populateLimit, "limit", 0, "process only the first N cities")
	f.BoolVar(&populateArchive, "archive", false, "archive each payload to object storage")
	rootCmd.AddCommand(populateCmd)
}
