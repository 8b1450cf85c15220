package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/api"
	"github.com/sells-group/gfscout/internal/cache"
	"github.com/sells-group/gfscout/internal/classify"
	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/feedback"
	"github.com/sells-group/gfscout/internal/fetcher"
	"github.com/sells-group/gfscout/internal/llm"
	"github.com/sells-group/gfscout/internal/news"
	"github.com/sells-group/gfscout/internal/places"
	"github.com/sells-group/gfscout/internal/search"
	"github.com/sells-group/gfscout/internal/store"
	"github.com/sells-group/gfscout/pkg/google"
)

var servePort int

// serveEnv holds the long-lived services behind the API.
type serveEnv struct {
	Store  store.Store
	Cache  *cache.Gate
	Server *api.Server
}

// Close drains pending cache writes, then closes the store.
func (e *serveEnv) Close(ctx context.Context) {
	if err := e.Cache.Close(ctx); err != nil {
		zap.L().Warn("cache drain incomplete", zap.Error(err))
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func initServe(ctx context.Context, c *config.Config) (*serveEnv, error) {
	st, err := openMigratedStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(ctx, c)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	googleClient := google.NewClient(c.Google.Key,
		google.WithBaseURL(c.Google.BaseURL),
		google.WithTimeout(time.Duration(c.Google.TimeoutSecs)*time.Second),
	)

	gate := cache.NewFromConfig(st, c.Cache)
	svc := search.NewService(
		places.NewFetcher(googleClient, c.Google),
		classify.New(completer, time.Duration(c.LLM.TimeoutSecs)*time.Second),
		gate,
	)

	newsFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1})
	srv := api.New(api.Deps{
		Search:   svc,
		Resolver: search.NewCityResolver(googleClient),
		Feedback: feedback.NewService(st),
		News:     news.NewFromConfig(newsFetcher, c.News),
	},
		api.WithRequestTimeout(time.Duration(c.Server.RequestTimeoutSecs)*time.Second),
		api.WithCORSOrigins(c.Server.CORSOrigins),
	)

	return &serveEnv{Store: st, Cache: gate, Server: srv}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initServe(ctx, cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           env.Server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("store", cfg.Store.Driver))
		err = srv.ListenAndServe()

		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		env.Close(closeCtx)

		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
