package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
	Long: `Show and check the configuration in effect.

Values come from built-in defaults, then config.toml in the config
directory, then NEWSDIGEST_* environment variables and their short
aliases such as K_CLUSTERS or SUMMARY_API_KEY. A .env file in the working
directory is loaded before the environment is read.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the AI providers are reachable",
	Long: `Build the configured embedding and text-generation providers and
send each a minimal request. Cloud providers need their API key set.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	st := newStyles(cmd.OutOrStdout())

	section := func(name string) {
		cmd.Println(st.Heading("[" + name + "]"))
	}
	field := func(label, key, value string) {
		line := fmt.Sprintf("  %-22s %s", label+":", value)
		if origin := originOf(key); origin != "" {
			line += " " + st.Muted("(from $"+origin+")")
		}
		cmd.Println(line)
	}

	cmd.Println(st.Title("Configuration"))
	cmd.Println()
	field("Data dir", services.KeyDataDir, valueOr(cfg.DataDir, "(default)"))
	cmd.Println()

	section("Pipeline")
	field("Clusters (k)", services.KeyKClusters, strconv.Itoa(cfg.Pipeline.KClusters))
	field("Max headlines per run", services.KeyMaxHeadlines, strconv.Itoa(cfg.Pipeline.MaxHeadlinesPerRun))
	field("Max age", services.KeyMaxAge, durationOr(cfg.Pipeline.MaxAge.String(), cfg.Pipeline.MaxAge == 0))
	field("Seed", services.KeySeed, strconv.FormatInt(cfg.Pipeline.Seed, 10))
	field("Restarts", services.KeyRestarts, strconv.Itoa(cfg.Pipeline.Restarts))
	field("Max iterations", services.KeyMaxIterations, strconv.Itoa(cfg.Pipeline.MaxIterations))
	field("Sources", services.KeySources, valueOr(strings.Join(cfg.Pipeline.Sources, ", "), "(none)"))
	cmd.Println()

	section("Embedding")
	field("Provider", services.KeyEmbedProvider, cfg.Embedding.Provider.Description())
	field("Model", services.KeyEmbedModel, cfg.Embedding.Model)
	if cfg.Embedding.BaseURL != "" {
		field("Base URL", services.KeyEmbedBaseURL, cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Provider.RequiresAPIKey() {
		field("API key", services.KeyEmbedAPIKey, apiKeyDisplay(cfg.Embedding.APIKey))
	}
	if cfg.Embedding.Provider == domain.AIProviderHashing {
		field("Dimensions", services.KeyEmbedDimensions, strconv.Itoa(cfg.Embedding.Dimensions))
	}
	field("Batch size", services.KeyEmbedBatchSize, strconv.Itoa(cfg.Embedding.BatchSize))
	cmd.Printf("  %-22s %s\n", "Status:", configuredStatus(cfg.Embedding.IsConfigured()))
	cmd.Println()

	section("LLM")
	field("Provider", services.KeyLLMProvider, cfg.LLM.Provider.Description())
	field("Model", services.KeyLLMModel, cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		field("Base URL", services.KeyLLMBaseURL, cfg.LLM.BaseURL)
	}
	if cfg.LLM.Provider.RequiresAPIKey() {
		field("API key", services.KeyLLMAPIKey, apiKeyDisplay(cfg.LLM.APIKey))
	}
	field("Concurrency", services.KeyLLMConcurrency, strconv.Itoa(cfg.LLM.Concurrency))
	field("Requests per minute", services.KeyLLMRequestsPerMin, strconv.Itoa(cfg.LLM.RequestsPerMinute))
	field("Max tokens", services.KeyLLMMaxTokens, strconv.Itoa(cfg.LLM.MaxTokens))
	cmd.Printf("  %-22s %s\n", "Status:", configuredStatus(cfg.LLM.IsConfigured()))
	cmd.Println()

	section("Retry")
	field("Max attempts", services.KeyRetryMaxAttempts, strconv.Itoa(cfg.Retry.MaxAttempts))
	field("Backoff base", services.KeyRetryBackoffBaseMS, cfg.Retry.BackoffBase.String())
	field("Max backoff", services.KeyRetryMaxBackoff, cfg.Retry.MaxBackoff.String())
	cmd.Println()

	section("Cache")
	field("Backend", services.KeyCacheBackend, string(cfg.Cache.Backend))
	switch cfg.Cache.Backend {
	case domain.CacheBackendMemory, domain.CacheBackendSQLite:
		field("Size", services.KeyCacheSize, strconv.Itoa(cfg.Cache.Size))
	case domain.CacheBackendRedis:
		field("Redis URL", services.KeyCacheRedisURL, cfg.Cache.RedisURL)
	}
	field("TTL", services.KeyCacheTTL, durationOr(cfg.Cache.TTL.String(), cfg.Cache.TTL == 0))
	cmd.Println()

	section("Scheduler")
	field("Enabled", services.KeySchedulerEnabled, strconv.FormatBool(cfg.Scheduler.Enabled))
	for _, id := range []string{domain.TaskIDPipelineRun, domain.TaskIDCachePrune} {
		tc := cfg.Scheduler.GetTaskConfig(id)
		value := "disabled"
		if tc.Enabled {
			value = "every " + tc.Interval.String()
		}
		cmd.Printf("  %-22s %s\n", id+":", value)
	}
	cmd.Println()

	section("HTTP")
	field("Address", services.KeyHTTPAddr, cfg.HTTP.Addr)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if configValidator == nil {
		return errors.New("config validator not configured")
	}
	st := newStyles(cmd.OutOrStdout())

	failed := 0
	check := func(name string, err error) {
		if err != nil {
			failed++
			cmd.Printf("%-10s %s %v\n", name, st.Failure("FAIL"), err)
			return
		}
		cmd.Printf("%-10s %s\n", name, st.Success("ok"))
	}

	embedding := appConfig.Embedding
	check("embedding", configValidator.ValidateEmbedding(cmd.Context(), &embedding))
	llm := appConfig.LLM
	check("llm", configValidator.ValidateLLM(cmd.Context(), &llm))

	if failed > 0 {
		return fmt.Errorf("%d of 2 providers failed validation", failed)
	}
	return nil
}

// originOf names the environment variable that set key, if any.
func originOf(key string) string {
	if configSource == nil {
		return ""
	}
	name, ok := configSource(key)
	if !ok {
		return ""
	}
	return name
}

func apiKeyDisplay(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// maskAPIKey shows only the ends of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(v string, unlimited bool) string {
	if unlimited {
		return "unlimited"
	}
	return v
}
