package driving

import "github.com/custodia-labs/newsdigest/internal/core/domain"

// SettingsService resolves the application configuration.
type SettingsService interface {
	// Resolve merges defaults with stored and overridden values and
	// validates the result.
	Resolve() (domain.Config, error)
}
