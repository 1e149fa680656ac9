// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback Engine Selection - these keys govern which backend is armed first for a playback request.
const (
	PlayerEngineStrategy   = "player.engine_strategy"
	PlayerReadinessTimeout = "player.readiness_timeout"
	PlayerDefaultRate      = "player.default_rate"
)

// Resume & Progress Tracking - these keys configure the persistence of playback position.
const (
	ProgressSaveInterval        = "progress.save_interval"
	ProgressCompletionThreshold = "progress.completion_threshold"
	ProgressSaveOnPlay          = "progress.save_on_play"
)

// Subtitle Resolution - these keys manage the external subtitle search and download service.
const (
	SubtitlesLanguages  = "subtitles.languages"
	SubtitlesAutoSearch = "subtitles.auto_search"
	SubtitlesEndpoint   = "subtitles.endpoint"
)

// Scrobble Reporting - these keys configure the fire-and-forget watch activity coordinator.
const (
	ScrobbleEnable   = "scrobble.enable"
	ScrobbleEndpoint = "scrobble.endpoint"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
