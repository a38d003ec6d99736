// Package build exposes build-time metadata for the service.
package build

// NiceName is the human-readable service name reported in build info.
const NiceName = "DSW Email Submission Service"

// PackageVersion is the semantic version of this codebase.
const PackageVersion = "0.1.0"

// Version and BuiltAt are stamped at build time via -ldflags, e.g.
//
//	go build -ldflags "-X .../internal/build.Version=$TAG -X .../internal/build.BuiltAt=$DATE"
//
// When left unstamped, they are reported as "unknown".
var (
	Version = "--VERSION--"
	BuiltAt = "--BUILT_AT--"
)

// Info describes the running build, serialized as the GET / response body.
type Info struct {
	Name           string `json:"name"`
	PackageVersion string `json:"packageVersion"`
	Version        string `json:"version"`
	BuiltAt        string `json:"builtAt"`
}

// Current returns the build info for this binary, substituting "unknown"
// for any value that was not stamped at build time.
func Current() Info {
	return Info{
		Name:           NiceName,
		PackageVersion: PackageVersion,
		Version:        orUnknown(Version, "--VERSION--"),
		BuiltAt:        orUnknown(BuiltAt, "--BUILT_AT--"),
	}
}

func orUnknown(value, placeholder string) string {
	if value == placeholder || value == "" {
		return "unknown"
	}
	return value
}
