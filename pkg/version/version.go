// Package version reports the pushboard build version.
package version

import "runtime/debug"

// Version is set at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/pushboard/pkg/version.Version=v0.1.0"
var Version = ""

// String returns Version, falling back to the module version recorded in
// the binary, then "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
