//go:build !windows

package collector

import "os/exec"

const executableSuffix = ""

// hideConsole is a no-op outside Windows.
func hideConsole(cmd *exec.Cmd) {}
