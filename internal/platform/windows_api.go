//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"ewebapp/internal/infrastructure/errors"
)

var (
	shell32                                     = windows.NewLazySystemDLL("shell32.dll")
	procSetCurrentProcessExplicitAppUserModelID = shell32.NewProc("SetCurrentProcessExplicitAppUserModelID")
)

// WindowsOS implements OS for Windows
type WindowsOS struct{}

// New returns the OS for the running platform
func New() OS {
	return WindowsOS{}
}

func (WindowsOS) KeepsRunningWithoutWindows() bool { return false }

// PrepareProcess sets the AppUserModelID so the taskbar groups the window
// and the tray icon under the application instead of the host executable.
func (WindowsOS) PrepareProcess(appID string) error {
	if err := procSetCurrentProcessExplicitAppUserModelID.Find(); err != nil {
		return errors.New("platform.PrepareProcess", err, errors.ErrCodePermission)
	}

	id, err := windows.UTF16PtrFromString(appID)
	if err != nil {
		return errors.HandleValidationError("platform.PrepareProcess", "appID", appID, err.Error())
	}

	hr, _, _ := procSetCurrentProcessExplicitAppUserModelID.Call(uintptr(unsafe.Pointer(id)))
	if hr != 0 {
		return errors.New("platform.PrepareProcess",
			fmt.Errorf("SetCurrentProcessExplicitAppUserModelID failed: HRESULT 0x%08x", uint32(hr)),
			errors.ErrCodeInternal)
	}
	return nil
}

func (WindowsOS) Name() string { return "windows" }
