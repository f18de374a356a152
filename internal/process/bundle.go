package process

import (
	"os"
	"path/filepath"

	"howett.net/plist"
)

// ExecutableResolver maps an app display name to its real executable name.
type ExecutableResolver interface {
	ExecutableName(app string) (string, bool)
}

// BundleResolver reads CFBundleExecutable from <dir>/<app>.app/Contents/Info.plist.
type BundleResolver struct {
	Dirs []string
}

// DefaultBundleResolver searches the standard application folders.
func DefaultBundleResolver() BundleResolver {
	return BundleResolver{Dirs: []string{"/Applications", "/System/Applications"}}
}

type infoPlist struct {
	Executable string `plist:"CFBundleExecutable"`
}

// ExecutableName implements ExecutableResolver.
func (r BundleResolver) ExecutableName(app string) (string, bool) {
	for _, dir := range r.Dirs {
		bundle := filepath.Join(dir, app+".app")
		if _, err := os.Stat(bundle); err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(bundle, "Contents", "Info.plist"))
		if err != nil {
			return "", false
		}
		var info infoPlist
		if _, err := plist.Unmarshal(data, &info); err != nil || info.Executable == "" {
			return "", false
		}
		return info.Executable, true
	}
	return "", false
}
