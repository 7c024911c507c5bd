// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Terminal tracker, bbolt feed cache, WGS-84 reference sub-point
// 0.2.0 - Prometheus metrics, OpenTelemetry tracing, offline reverse geocoding
// 0.1.0 - Initial release: HTTP query API, nearest-epoch "now", headless modes
