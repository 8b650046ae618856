// Package cli implements the canvas command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/redkyn/canvas-client/internal/config"
	"github.com/redkyn/canvas-client/pkg/canvas"
	"github.com/redkyn/canvas-client/pkg/classify"
	"github.com/redkyn/canvas-client/pkg/client"
	"github.com/redkyn/canvas-client/pkg/logging"
	"github.com/redkyn/canvas-client/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand once initializeApp ran.
type app struct {
	cfgFile     string
	logLevel    string
	metricsFile string

	// httpClient replaces the engine's transport when set.
	httpClient *http.Client

	cfg    *config.Config
	logger zerolog.Logger
	client *client.Client
	redis  *redis.Client
	api    *canvas.API
}

// Option customizes the root command.
type Option func(*app)

// WithHTTPClient routes Canvas requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(a *app) {
		a.httpClient = c
	}
}

// NewRootCmd builds the canvas command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "canvas",
		Short: "Query and grade Canvas LMS courses",
		Long: `canvas talks to the Canvas LMS REST API on behalf of an instructor.
It lists courses, rosters and assignments and posts grades.

Settings come from config.yaml (./, ~/.canvas/ or /etc/canvas/) and
CANVAS_URL / CANVAS_TOKEN environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initializeApp,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		a.coursesCmd(),
		a.studentsCmd(),
		a.assignmentsCmd(),
		a.gradeCmd(),
		a.lookupCmd(),
	)
	for _, sub := range rootCmd.Commands() {
		if sub.RunE != nil {
			sub.RunE = a.withShutdown(sub.RunE)
		}
	}

	return rootCmd
}

// withShutdown runs shutdown after run whether or not it failed. Cobra skips
// post-run hooks once RunE returns an error.
func (a *app) withShutdown(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		return errors.Join(err, a.shutdown())
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// initializeApp loads configuration and builds the Canvas clients
func (a *app) initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		if !logging.ValidLevel(a.logLevel) {
			return fmt.Errorf("invalid --log-level: %s", a.logLevel)
		}
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logOpts := cfg.LoggingOptions()
	logOpts.Output = cmd.ErrOrStderr()
	logging.Setup(logOpts)
	a.logger = logging.NewLogger("canvas-cli")

	clientCfg := cfg.ClientConfig()
	clientLogger := logging.NewLogger("canvas-client")
	clientCfg.Logger = &clientLogger

	if opts := cfg.RedisOptions(); opts != nil {
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(a.context(cmd)).Err(); err != nil {
			a.logger.Warn().
				Err(err).
				Str("addr", opts.Addr).
				Msg("Redis unavailable, continuing without rate limit tracking")
			a.redis.Close()
			a.redis = nil
		} else {
			clientCfg.Redis = a.redis
		}
	}

	a.client, err = client.New(clientCfg)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create Canvas client: %w", err), a.shutdown())
	}
	if a.httpClient != nil {
		a.client.SetHTTPClient(a.httpClient)
	}

	a.api = canvas.New(a.client, clientLogger)

	a.logger.Debug().
		Str("base_url", a.client.BaseURL()).
		Bool("rate_limit_tracking", a.client.RateLimiter() != nil).
		Msg("Canvas client ready")

	return nil
}

// shutdown releases clients and writes the metrics file when requested.
func (a *app) shutdown() error {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}

	if a.metricsFile != "" {
		if err := metrics.WriteTextfile(a.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// describe adds a hint for the typed Canvas failures.
func describe(err error) string {
	switch {
	case errors.Is(err, classify.ErrAuthenticationFailed):
		return fmt.Sprintf("%v\nhint: check canvas.token / CANVAS_TOKEN", err)
	case errors.Is(err, classify.ErrNameResolutionFailed):
		return fmt.Sprintf("%v\nhint: check canvas.url / CANVAS_URL", err)
	default:
		return err.Error()
	}
}
