// Package misc holds build time program information.
package misc

// Values below are overwritten by the linker during release builds:
//
//	-ldflags "-X sassgo/misc.version=... -X sassgo/misc.gitHash=..."
var (
	appName = "sassgo"
	version = "0.1.0-dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
