// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runner

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; taskkill /T walks the tree instead.
func setProcessGroup(*exec.Cmd) {}

// killProcessTree terminates the child and all its descendants with taskkill,
// falling back to killing the child alone.
func killProcessTree(cmd *exec.Cmd) error {
	pid := strconv.Itoa(cmd.Process.Pid)
	err := exec.Command("taskkill", "/T", "/F", "/PID", pid).Run()
	if err == nil {
		return nil
	}
	if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		return errors.Join(err, killErr)
	}
	return nil
}

func exitCodeOf(ps *os.ProcessState) int {
	return ps.ExitCode()
}
