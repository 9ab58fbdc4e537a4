// Package constants provides shared constants used throughout the upcmap codebase.
// This includes timeouts, request budgets, file permissions, and the upstream
// hosts queried by the built-in data sources.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for a single upstream request
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Request budget constants
const (
	// DefaultHostLimit is the default number of live calls permitted per host in a run
	DefaultHostLimit = 100

	// MaxItems is the maximum number of product codes processed in a single lookup
	MaxItems = 10

	// DefaultItemsCount is the default number of product codes processed by the CLI
	DefaultItemsCount = 10

	// DefaultConcurrency processes codes one at a time
	DefaultConcurrency = 1

	// MaxConcurrency is the upper bound accepted for parallel collection
	MaxConcurrency = 16
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Upstream hosts
const (
	// OpenFoodFactsHost serves the Open Food Facts product API
	OpenFoodFactsHost = "world.openfoodfacts.org"

	// FoodDataCentralHost serves the USDA FoodData Central API
	FoodDataCentralHost = "api.nal.usda.gov"

	// FoodDataCentralKeyName is the credential name holding the FoodData Central API key
	FoodDataCentralKeyName = "FDC_API_KEY"

	// DefaultScheme is used when building upstream URLs
	DefaultScheme = "https"
)
