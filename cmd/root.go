package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"subreddit-insights/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
	appCfg  config.Config
	logFile *os.File
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "subreddit-insights",
	Short: "Collect, analyze and chart subreddit discussions",
	Long: "Collects posts from a subreddit search into SQLite, appends model-written analyses " +
		"to a report file and serves a local dashboard over both.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()
	return rootCmd.Execute()
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"reddit.client_id":     "REDDIT_CLIENT_ID",
	"reddit.client_secret": "REDDIT_CLIENT_SECRET",
	"reddit.user_agent":    "REDDIT_USER_AGENT",
	"openai.api_key":       "OPENAI_API_KEY",
	"redis.addr":           "REDIS_ADDR",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.String("db", "", "SQLite database path (overrides database.file)")
	pf.String("report", "", "analysis report path (overrides output_file)")
	pf.Int("year", 0, "only consider posts created in this year")

	v := viper.GetViper()
	_ = v.BindPFlag("database.file", pf.Lookup("db"))
	_ = v.BindPFlag("output_file", pf.Lookup("report"))
	_ = v.BindPFlag("year", pf.Lookup("year"))
}

func initConfig() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error reading .env: %v\n", err)
		os.Exit(1)
	}

	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/subreddit-insights")
		v.AddConfigPath("configs")
	}
	config.SetDefaults(v)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	readErr := v.ReadInConfig()
	if readErr != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(readErr, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", readErr)
			os.Exit(1)
		}
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}
	appCfg.FillDefaults()

	if err := setupLogging(appCfg.App); err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	if readErr == nil {
		slog.Debug("config: loaded", "file", v.ConfigFileUsed())
	} else {
		slog.Debug("config: no config file found, using defaults and environment")
	}
}

// setupLogging installs the default slog handler. --debug forces debug level.
func setupLogging(app config.AppConfig) error {
	level := parseLevel(app.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if app.LogFile != "" {
		f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}

// validConfig returns the configuration after checking the raw settings
// against the config schema.
func validConfig() (config.Config, error) {
	if err := config.Validate(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	return appCfg, nil
}
