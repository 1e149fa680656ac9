// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Vireo is the canonical application identifier used for filesystem paths and CLI branding.
	Vireo = "vireo"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the default HTTP User-Agent string used for network requests to external services.
	UserAgent = "vireo/" + Version
)

// Build metadata, overridden at link time by the release pipeline.
var (
	Revision = "unknown"
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
)

// AsciiArtLogo is the banner rendered by the root command's long help.
const AsciiArtLogo = `
 __   __ ___  ___  ___  ___
 \ \ / /|_ _|| _ \| __|/ _ \
  \ V /  | | |   /| _|| (_) |
   \_/  |___||_|_\|___|\___/
`
