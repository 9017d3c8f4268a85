package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is stamped at link time:
//
//	go build -ldflags "-X github.com/mixdown-audio/mixdown/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, suffixed with
// "-dirty" for a modified tree. Empty outside a VCS checkout.
var Hash = revision(readSettings())

// VersionOrHash is Version if it was stamped, else Hash, else "devel".
var VersionOrHash = pick(Version, Hash)

func readSettings() []debug.BuildSetting {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info.Settings
}

func revision(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

func pick(version, hash string) string {
	switch {
	case version != "":
		return version
	case hash != "":
		return hash
	}
	return "devel"
}

// UserAgent identifies a mixdown binary in HTTP headers, e.g.
// "mixdown-server/v0.3.0".
func UserAgent(program string) string {
	return program + "/" + strings.ReplaceAll(VersionOrHash, " ", "_")
}

// Long is the multi-field version line printed by --version.
func Long(program string) string {
	return fmt.Sprintf("%s %s (%s, %s/%s)", program, VersionOrHash, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
