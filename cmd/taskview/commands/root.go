package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/taskview/cmd/taskview/output"
	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/config"
	"github.com/BuzzLyutic/taskview/internal/session"
)

var (
	// Global flags
	apiURL       string
	token        string
	outputFormat string
	envFile      string

	// Shared instances
	cfg       config.Config
	logger    *zap.Logger
	formatter *output.Formatter
	printer   *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "taskview",
	Short: "Filter, page and edit tasks of a task tracker service",
	Long: `taskview talks to the task tracker REST service. Every list view is
described by a canonical query string that can be shared and replayed.

Examples:
  # Tasks matching "bug", newest first
  taskview list --search bug

  # Replay a shared view
  taskview list 'search=bug&status=done&page=2'

  # Interactive session with debounced refreshes
  taskview watch

  # Local in-memory service with demo data
  taskview serve --seed 40`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		var err error
		cfg, err = config.Load(files...)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("api") {
			cfg.APIURL = apiURL
		}
		if cmd.Flags().Changed("token") {
			cfg.Token = token
		}

		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, os.Stdout)
		printer = output.NewPrinter(os.Stderr)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.NewPrinter(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Base URL of the task service (default from TASKVIEW_API_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (default from TASKVIEW_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Read variables from this file instead of .env")
}

// newLogger builds a console logger on stderr; stdout is kept for results.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = lvl > zapcore.DebugLevel
	return zcfg.Build()
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newClient() *api.Client {
	return api.New(cfg.APIURL, logger.Named("api"),
		api.WithToken(cfg.Token),
		api.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	)
}

// noticePrinter shows session notices on stderr.
type noticePrinter struct{}

func (noticePrinter) Notify(n session.Notice) {
	if n.Kind == session.NoticeError {
		printer.Error("%s", n.Message)
		return
	}
	printer.Success("%s", n.Message)
}

func newSession(query string, opts session.Options) *session.Session {
	opts.API = newClient()
	opts.Query = query
	opts.PerPage = cfg.PerPage
	if opts.Delay == 0 {
		opts.Delay = cfg.Debounce
	}
	opts.Logger = logger
	opts.Notifier = noticePrinter{}
	return session.New(opts)
}
