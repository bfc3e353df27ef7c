package cmd

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/config"
	"github.com/rustyeddy/gridbt/internal/logx"
	"github.com/rustyeddy/gridbt/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "gridbt",
	Short: "Minute-bar grid trading backtester",
	Long: `gridbt replays minute OHLC bars through a LIFO grid strategy.

It provides tools for:
  - Importing CSV and Parquet minute bars into a SQLite bar store
  - Backtesting a grid configuration over a symbol and date range
  - Sweeping grid density, sell gap and lot limits in parallel
  - Journaling runs to SQLite or a report directory`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	cfgFile     string
	logLevel    string
	logFormat   string
	metricsAddr string

	appCfg *config.Config
	logger *zap.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "console or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9108")
}

func setup(cmd *cobra.Command, args []string) error {
	appCfg = config.Default()
	if cfgFile != "" {
		c, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		appCfg = c
	}
	if logLevel != "" {
		appCfg.Log.Level = logLevel
	}
	if logFormat != "" {
		appCfg.Log.Format = logFormat
	}

	l, err := logx.New(appCfg.Log.Level, appCfg.Log.Format)
	if err != nil {
		return err
	}
	logger = l

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", metricsAddr))
	}
	return nil
}
