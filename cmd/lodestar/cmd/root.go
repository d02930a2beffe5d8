// Package cmd implements the lodestar CLI commands. All process
// environment and dotenv access lives here; the library underneath is
// configured explicitly through options.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	lodestar "github.com/lodestar-gis/lodestar"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

var (
	configFile     string
	connectorsFile string
	verbose        bool
	jsonOutput     bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lodestar",
	Short: "Satellite imagery catalog aggregator",
	Long: `Lodestar searches multiple satellite-imagery catalogs through one
interface. Sources are declared in a connector definitions file; open-data
sources work immediately, OAuth2-protected sources authenticate with
credentials from the environment or a .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.lodestar.yaml)")
	rootCmd.PersistentFlags().StringVar(&connectorsFile, "connectors", "", "connector definitions file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	if err := viper.BindPFlag("connectors", rootCmd.PersistentFlags().Lookup("connectors")); err != nil {
		panic(fmt.Sprintf("Failed to bind connectors flag: %v", err))
	}
}

// initConfig reads the config file, .env file, and environment.
func initConfig() {
	// Credentials commonly live in a .env next to the working directory.
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lodestar")
	}

	viper.SetEnvPrefix("LODESTAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// newLogger builds the CLI logger from config and the --verbose flag.
func newLogger() zerolog.Logger {
	cfg := &logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	}
	if cfg.Format == "" {
		cfg.Format = "console"
	}
	if verbose {
		cfg.Level = "debug"
	}
	return logging.NewLoggerFromConfig(cfg)
}

// newLodestar assembles the aggregator from the definitions file and
// authenticates every connector whose credentials are configured.
func newLodestar(ctx context.Context) (lodestar.Lodestar, error) {
	logger := newLogger()
	logging.SetDefault(logger)

	opts := []lodestar.Option{
		lodestar.WithLogger(logger),
	}

	defs := viper.GetString("connectors")
	if defs == "" {
		return nil, fmt.Errorf("no connector definitions file: pass --connectors or set LODESTAR_CONNECTORS")
	}
	opts = append(opts, lodestar.WithConnectorDefinitionsFile(defs))

	ls, err := lodestar.New(opts...)
	if err != nil {
		return nil, err
	}

	authenticateFromEnv(ctx, ls)
	return ls, nil
}

// authenticateFromEnv authenticates gated connectors whose credentials are
// present as LODESTAR_<ID>_CLIENT_ID / LODESTAR_<ID>_CLIENT_SECRET.
// Missing credentials just leave the connector out of fan-outs.
func authenticateFromEnv(ctx context.Context, ls lodestar.Lodestar) {
	for _, d := range ls.Connectors() {
		if !d.RequiresAuth() {
			continue
		}
		id := strings.ToLower(d.ID.String())
		creds := connectors.Credentials{
			ClientID:     viper.GetString(id + "_client_id"),
			ClientSecret: viper.GetString(id + "_client_secret"),
			Token:        viper.GetString(id + "_token"),
		}
		if creds.IsZero() {
			logging.Debug().Str("connector", id).Msg("No credentials configured, skipping authentication")
			continue
		}
		if err := ls.Authenticate(ctx, d.ID, creds); err != nil {
			logging.Warn().Err(err).Str("connector", id).Msg("Authentication failed")
		}
	}
}
