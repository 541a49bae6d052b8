// Package version reports the build identity of the rbjoin binaries.
package version

import (
	"fmt"
	"runtime/debug"
)

// BinaryVersion is the release version, set with -ldflags at build time.
var BinaryVersion = "dev"

// BinaryGitHash is the Git hash of the binary which is executing.
var BinaryGitHash = "<unknown>"

// Info returns the version and commit, falling back to the VCS stamp the Go
// toolchain embeds when the ldflags were not set.
func Info() (ver, commit string) {
	ver, commit = BinaryVersion, BinaryGitHash

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ver, commit
	}

	if ver == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		ver = info.Main.Version
	}

	if commit == "<unknown>" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				commit = setting.Value
			}
		}
	}

	return ver, commit
}

// String formats Info for humans.
func String() string {
	ver, commit := Info()

	return fmt.Sprintf("rbjoin %s (%s)", ver, commit)
}
