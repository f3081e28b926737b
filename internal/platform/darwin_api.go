//go:build darwin

package platform

// DarwinOS implements OS for macOS
type DarwinOS struct{}

// New returns the OS for the running platform
func New() OS {
	return DarwinOS{}
}

func (DarwinOS) KeepsRunningWithoutWindows() bool { return true }

// PrepareProcess is a no-op; the bundle identifier comes from Info.plist
func (DarwinOS) PrepareProcess(string) error { return nil }

func (DarwinOS) Name() string { return "darwin" }
