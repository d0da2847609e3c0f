package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hypermind/hypermind-agent/internal/config"
)

const envPrefix = "HYPERMIND"

// Version information set by the main package.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{"dev", "unknown", "unknown"}

// SetVersionInfo records build information for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call gets its own viper
// instance.
func NewRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:           "hypermind-agent",
		Short:         "Poll Hypermind nodes and expose their peer counts as sensors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	root.PersistentFlags().String("config", "config.yaml", "path to config file")
	root.PersistentFlags().String("log-level", "", "log level: debug | info | warn | error (overrides config)")

	root.AddCommand(
		newServeCmd(v),
		newValidateCmd(v),
		newPollCmd(v),
		newVersionCmd(),
	)
	return root
}

// newViper returns a viper instance that reads HYPERMIND_* variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file named by --config and applies flag and
// environment overrides. A missing default config file is not an error;
// a missing file that was asked for explicitly is.
func loadConfig(v *viper.Viper) (*config.Config, string, error) {
	path := v.GetString("config")
	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !v.IsSet("config"):
		slog.Warn("config: file not found, using defaults", "path", path)
		cfg = config.Default()
	default:
		return nil, path, err
	}

	if s := v.GetString("log-level"); s != "" {
		cfg.Agent.LogLevel = s
	}
	if s := v.GetString("http-addr"); s != "" {
		cfg.Agent.HTTPAddr = s
	}
	if d := v.GetDuration("scan-interval"); d > 0 {
		cfg.Agent.ScanInterval = d
	}
	if d := v.GetDuration("timeout"); d > 0 {
		cfg.Agent.RequestTimeout = d
	}
	return cfg, path, nil
}

// setupLogging installs a JSON slog handler on stdout as the default
// logger. The returned LevelVar can be changed at runtime.
func setupLogging(level string) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
	slog.SetDefault(logger)
	return lv
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "hypermind-agent %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
}
