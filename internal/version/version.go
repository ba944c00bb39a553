// ABOUTME: Version and product constants
// ABOUTME: Reported by the CLI, remote status and mDNS records
package version

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=..."
var Version = "0.3.0"

const (
	// Product is the display name of the player
	Product = "Yako Player"

	// Manufacturer identifies the project in device info
	Manufacturer = "yako"
)
