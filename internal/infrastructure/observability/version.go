package observability

// Binary versioning for logs and /api/version.
// Values are overwritten via -ldflags during build.
var (
	Version = "dev"  // release version
	Commit  = "none" // short commit
	Date    = ""     // ISO8601 UTC build time
)

func BuildInfo() map[string]string {
	return map[string]string{"version": Version, "commit": Commit, "date": Date}
}
