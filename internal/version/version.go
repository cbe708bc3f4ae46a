package version

import "fmt"

// Set at build time with -ldflags "-X ...".
var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String renders the build identity for -version output.
func String() string {
	return fmt.Sprintf("qsrtrace %s (%s, built %s)", Version, GitSHA, BuildTime)
}
