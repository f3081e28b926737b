//go:build linux

package platform

// LinuxOS implements OS for Linux desktops
type LinuxOS struct{}

// New returns the OS for the running platform
func New() OS {
	return LinuxOS{}
}

func (LinuxOS) KeepsRunningWithoutWindows() bool { return false }

// PrepareProcess is a no-op; the desktop entry carries the application id
func (LinuxOS) PrepareProcess(string) error { return nil }

func (LinuxOS) Name() string { return "linux" }
