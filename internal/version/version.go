// ABOUTME: Version and product identification
// ABOUTME: Shown in the startup banner, the status view and reported to sound servers
package version

const (
	// Version is the release version
	Version = "1.0.0"

	// Product is the program name
	Product = "play-silence"

	// Manufacturer identifies the project
	Manufacturer = "gwwtests"

	// Purpose is printed under the banner
	Purpose = "Keep audio subsystem active to prevent vokoscreenNG freezing"
)

// Banner returns the startup line
func Banner() string {
	return Product + " - silence player v" + Version
}
