package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
)

// version is overridden at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0"

var (
	cfgFile        string
	verbose        bool
	providerName   string
	storageBackend string
)

// envKeys are the config keys that may be set through EOQ_* variables
var envKeys = []string{
	"llm.provider", "llm.model", "llm.api_key", "llm.base_url", "llm.timeout",
	"storage.backend", "storage.path",
	"server.addr", "server.rate_limit",
	"fetch.http_proxy", "fetch.https_proxy", "fetch.no_proxy", "fetch.relay_url",
	"enhancement.enabled", "batch.concurrency",
	"log.level", "log.format",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eoq",
	Short: "EOQ - search result quality scoring and reranking",
	Long: `eoq scores search results on four axes (empathy, certainty, boundary
and refinement), enriches the top results with their page content and domain
reputation, and reorders a results page by the combined EOQ total.

Scoring uses a remote model when a credential is configured and falls back
to local heuristics otherwise.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "eoq %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.eoq/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "scoring backend (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().StringVar(&storageBackend, "storage", "", "storage backend (file, sqlite, memory)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".eoq"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("EOQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

// loadConfig overlays v on the built-in defaults and fills provider
// credentials from their conventional environment variables
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	case "none":
		cfg.LLM.Provider = ""
	}

	if cfg.Fetch.HTTPProxy == "" {
		cfg.Fetch.HTTPProxy = firstEnv("HTTP_PROXY", "http_proxy")
	}
	if cfg.Fetch.HTTPSProxy == "" {
		cfg.Fetch.HTTPSProxy = firstEnv("HTTPS_PROXY", "https_proxy")
	}
	if cfg.Fetch.NoProxy == "" {
		cfg.Fetch.NoProxy = firstEnv("NO_PROXY", "no_proxy")
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// newLogger builds the slog handler selected by cfg. verbose forces debug.
func newLogger(w io.Writer, cfg model.LogConfig, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openPipeline loads the configuration, builds a pipeline and restores its
// persisted state. The caller must Close it.
func openPipeline(ctx context.Context, opts ...pipeline.Option) (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(os.Stderr, cfg.Log, verbose)
	slog.SetDefault(logger)

	p, err := pipeline.New(cfg, append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	// partial loads are logged by the pipeline; scoring still works
	_ = p.Load(ctx)
	return p, cfg, nil
}

// currentConfig applies the global flags, which outrank every other source
func currentConfig() (*model.Config, error) {
	v := viper.GetViper()
	if providerName != "" {
		v.Set("llm.provider", providerName)
	}
	if storageBackend != "" {
		v.Set("storage.backend", storageBackend)
	}
	return loadConfig(v)
}

// closePipeline persists state and releases storage
func closePipeline(ctx context.Context, p *pipeline.Pipeline) error {
	flushErr := p.Flush(context.WithoutCancel(ctx))
	if err := p.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("persist state: %w", flushErr)
	}
	return nil
}
