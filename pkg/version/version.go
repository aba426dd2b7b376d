// Package version provides version information for the oracled service.
package version

// Version is the current version of the service. Overridden at build time
// via -ldflags "-X oracle-pricefeed/pkg/version.Version=...".
var Version = "0.1.0-dev"

// UserAgent returns the HTTP User-Agent string sent to upstream feeds.
func UserAgent() string {
	return "oracle-pricefeed/" + Version
}
