package dlttoolkit

// Build-time version metadata, injected via -ldflags the same way the
// upstream shoveler tooling stamps its binaries.
var (
	ToolkitVersion string
	ToolkitCommit  string
	ToolkitDate    string
	ToolkitBuiltBy string
)
