// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols used for status columns across commands.
const (
	// Success marks a configured or healthy state.
	Success = "✓"

	// Error marks a missing requirement.
	Error = "✗"

	// Warning marks a degraded state, such as an exhausted budget.
	Warning = "!"

	// Optional marks something that is not required.
	Optional = "-"
)
