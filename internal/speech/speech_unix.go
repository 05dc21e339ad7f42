// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package speech

import (
	"os/exec"
	"syscall"
)

// platformSpecs lists the engines tried on Unix/macOS, in preference order.
func platformSpecs() []engineSpec {
	return []engineSpec{
		{name: "espeak-ng", binary: "espeak-ng", args: espeakArgs, stdin: true},
		{name: "espeak", binary: "espeak", args: espeakArgs, stdin: true},
		{name: "spd-say", binary: "spd-say", args: spdSayArgs, stopArgs: []string{"-S"}},
		{name: "say", binary: "say", args: sayArgs, stdin: true},
	}
}

// configureProcess puts the engine in its own process group so Cancel
// also stops any audio helpers it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
