// Package cli provides the cobra command tree for the newsdigest binary.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// skipServicesAnnotation marks commands that run without the service graph.
const skipServicesAnnotation = "newsdigest/skip-services"

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Services groups everything the commands run against. It is built by
// the entry point, once per process.
type Services struct {
	Config          domain.Config
	ConfigSource    func(key string) (string, bool)
	Headlines       driving.HeadlineService
	Pipeline        driving.PipelineRunner
	Runs            driving.RunService
	Scheduler       driving.Scheduler
	SummaryCache    driven.SummaryCache
	ConfigValidator driven.AIConfigValidator
}

// BootstrapFunc builds the services. The returned cleanup func releases
// stores and provider clients.
type BootstrapFunc func(ctx context.Context) (*Services, func(), error)

var (
	appConfig       = domain.DefaultConfig()
	configSource    func(key string) (string, bool)
	headlineService driving.HeadlineService
	pipelineRunner  driving.PipelineRunner
	runService      driving.RunService
	scheduler       driving.Scheduler
	summaryCache    driven.SummaryCache
	configValidator driven.AIConfigValidator

	bootstrap     BootstrapFunc
	servicesReady bool
	cleanup       func()
)

var rootCmd = &cobra.Command{
	Use:   "newsdigest",
	Short: "Cluster and summarise financial news headlines",
	Long: `newsdigest groups recent financial headlines into themes and writes a
short summary per theme plus an executive overview.

Headlines are ingested from files, an inbox directory or the HTTP API and
kept in a local store. Each pipeline run embeds the most recent headlines,
clusters them with k-means and asks the configured model for summaries.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap registers the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices injects services directly.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	appConfig = s.Config
	configSource = s.ConfigSource
	headlineService = s.Headlines
	pipelineRunner = s.Pipeline
	runService = s.Runs
	scheduler = s.Scheduler
	summaryCache = s.SummaryCache
	configValidator = s.ConfigValidator
	servicesReady = true
}

// Execute runs the command tree and releases services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func preRun(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		logger.SetVerbose(true)
	}
	if cmd.Annotations[skipServicesAnnotation] == "true" {
		return nil
	}
	return ensureServices(cmd.Context())
}

// ensureServices runs the bootstrap once. Without a bootstrap the
// injected services are used as they are.
func ensureServices(ctx context.Context) error {
	if servicesReady || bootstrap == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s, closer, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return errors.New("bootstrap returned no services")
	}
	SetServices(s)
	cleanup = closer
	return nil
}

func closeServices() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}
