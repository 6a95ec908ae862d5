//go:build windows

package collector

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

const executableSuffix = ".exe"

// hideConsole prevents a console window from flashing when a helper is spawned
// from a GUI process.
func hideConsole(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
