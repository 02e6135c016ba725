package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/colleges"
	"github.com/codeclimb/codeclimb-backend/internal/config"
	"github.com/codeclimb/codeclimb-backend/internal/database"
	"github.com/codeclimb/codeclimb-backend/internal/logging"
	"github.com/codeclimb/codeclimb-backend/internal/platform"
	"github.com/codeclimb/codeclimb-backend/internal/ranking"
	"github.com/codeclimb/codeclimb-backend/internal/scheduler"
	"github.com/codeclimb/codeclimb-backend/internal/server"
	"github.com/codeclimb/codeclimb-backend/internal/stats"
	"github.com/codeclimb/codeclimb-backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codeclimb-api",
		Short: "CodeClimb developer-activity scoring and ranking backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("github-token", "", "GitHub API token (overrides env)")
	cmd.PersistentFlags().Int("fetch-timeout-seconds", defaults.GetInt("fetch.timeout_seconds"), "Per-platform fetch timeout in seconds")
	cmd.PersistentFlags().Int("sync-interval-minutes", defaults.GetInt("sync.interval_minutes"), "Full-population stats sync interval in minutes")
	cmd.PersistentFlags().Int("rank-interval-minutes", defaults.GetInt("rank.interval_minutes"), "Rank recomputation interval in minutes")
	cmd.PersistentFlags().Bool("scheduler-enabled", defaults.GetBool("scheduler.enabled"), "Run the periodic sync and rank jobs")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "github.token", "github-token")
	bindFlag(cmd, "fetch.timeout_seconds", "fetch-timeout-seconds")
	bindFlag(cmd, "sync.interval_minutes", "sync-interval-minutes")
	bindFlag(cmd, "rank.interval_minutes", "rank-interval-minutes")
	bindFlag(cmd, "scheduler.enabled", "scheduler-enabled")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		return err
	}

	statsService, err := stats.NewService(stats.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
		Logger:     logger,
		GitHub: platform.NewGitHubClient(platform.GitHubClientConfig{
			BaseURL: appConfig.GitHubBaseURL,
			Token:   appConfig.GitHubToken,
			Timeout: appConfig.FetchTimeout,
		}),
		LeetCode: platform.NewLeetCodeClient(platform.LeetCodeClientConfig{
			BaseURL: appConfig.LeetCodeBaseURL,
			Timeout: appConfig.FetchTimeout,
		}),
		HackerRank: platform.NewHackerRankClient(platform.HackerRankClientConfig{
			BaseURL: appConfig.HackerRankBaseURL,
			Timeout: appConfig.FetchTimeout,
		}),
		FetchTimeout: appConfig.FetchTimeout,
	})
	if err != nil {
		return err
	}

	rankingService, err := ranking.NewService(ranking.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	collegesService, err := colleges.NewService(colleges.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		UsersService:    usersService,
		StatsService:    statsService,
		RankingService:  rankingService,
		CollegesService: collegesService,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if appConfig.SchedulerEnabled {
		jobs, err := scheduler.New(scheduler.Config{
			Syncer:       statsService,
			Ranker:       rankingService,
			SyncInterval: appConfig.SyncInterval,
			RankInterval: appConfig.RankInterval,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := jobs.Run(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler exited", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
