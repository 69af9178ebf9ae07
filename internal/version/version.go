package version

// Set at build time via -ldflags where a release pipeline exists.
var (
	AppName    = "Moodwave"
	AppVersion = "dev"
)
