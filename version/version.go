// Package version reports the build of fintrack that is running.
package version

import "os"

const product = "fintrack-go"

// Version returns the short commit SHA from COMMIT_SHA, or "unknown".
func Version() string {
	version, ok := os.LookupEnv("COMMIT_SHA")
	if !ok || version == "" {
		version = "unknown"
	}
	if len(version) > 7 {
		version = version[:7]
	}
	return version
}

// UserAgent is sent on every request made by the API gateway client.
func UserAgent() string {
	return product + "/" + Version()
}
