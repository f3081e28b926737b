package platform

import (
	"os"
	"os/exec"
	"path/filepath"

	"ewebapp/internal/infrastructure/errors"
)

// RelaunchEnv marks a process started by Relaunch after a reset
const RelaunchEnv = "EWEBAPP_RELAUNCH"

// DataDir returns the per-application data directory, creating it if needed
func DataDir(appID string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap("platform.DataDir", err)
	}
	dir := filepath.Join(base, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.HandleResourceError("platform.DataDir", dir, err)
	}
	return dir, nil
}

// WebviewDir is where the webview keeps cookies, storage and caches
func WebviewDir(dataDir string) string {
	return filepath.Join(dataDir, "webview")
}

// ResetProfile deletes the webview profile under dataDir
func ResetProfile(dataDir string) error {
	dir := WebviewDir(dataDir)
	if err := os.RemoveAll(dir); err != nil {
		return errors.HandleResourceError("platform.ResetProfile", dir, err)
	}
	return nil
}

// Relaunch starts a new copy of the running executable with the same
// arguments and env appended to the current environment. It does not wait.
func Relaunch(env ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap("platform.Relaunch", err)
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return errors.WrapWithContext("platform.Relaunch", err, map[string]string{"executable": exe})
	}
	return cmd.Process.Release()
}

// IsRelaunch reports whether this process was started by Relaunch
func IsRelaunch() bool {
	return os.Getenv(RelaunchEnv) != ""
}
