// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Catalog Access - these keys configure the remote movie catalog API client.
const (
	CatalogBaseURL  = "catalog.base_url"
	CatalogPageSize = "catalog.page_size"
)

// Media Playback - these keys hold the player defaults negotiated on every engine load.
const (
	PlayerAutoPlay         = "player.auto_play"
	PlayerDefaultVolume    = "player.default_volume"
	PlayerDefaultSpeed     = "player.default_speed"
	PlayerSkipForward      = "player.skip_forward"
	PlayerSkipBackward     = "player.skip_backward"
	PlayerDoubleTapSkip    = "player.double_tap_skip"
	PlayerThumbnailPreview = "player.thumbnail_preview"
)

// Resume Negotiation - these keys govern the continue-watching offer.
const (
	ResumeAuto      = "resume.auto"
	ResumeThreshold = "resume.threshold"
	ResumeCountdown = "resume.countdown"
)

// History Tracking - these keys configure the persistence of playback progress.
const (
	HistorySaveOnWatch = "history.save_on_watch"
	HistoryMaxEntries  = "history.max_entries"
)

// Network - these keys tune outbound HTTP behaviour.
const (
	NetworkBrowserFingerprint = "network.browser_fingerprint"
)

// Diagnostics - these keys control the logging subsystem.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// Command Line - these keys define CLI presentation behaviour.
const (
	CliColored      = "cli.colored"
	CliSearchLimit  = "cli.search_limit"
	CliShowThumbURL = "cli.show_thumbnail_urls"
)
