// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package speech

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

// CREATE_NO_WINDOW keeps PowerShell from flashing a console window.
const createNoWindow = 0x08000000

// platformSpecs lists the engines tried on Windows.
func platformSpecs() []engineSpec {
	return []engineSpec{
		{name: "powershell", binary: "powershell", args: powershellArgs, stdin: true},
	}
}

// powershellArgs drives System.Speech, reading the text from stdin.
func powershellArgs(opts Options, _ string) []string {
	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech;")
	script.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer;")
	if opts.Voice != "" {
		fmt.Fprintf(&script, "$s.SelectVoice('%s');", strings.ReplaceAll(opts.Voice, "'", "''"))
	}
	if opts.Rate > 0 {
		fmt.Fprintf(&script, "$s.Rate = %d;", sapiRate(opts.Rate))
	}
	script.WriteString("$s.Speak([Console]::In.ReadToEnd())")
	return []string{"-NoProfile", "-NonInteractive", "-Command", script.String()}
}

// sapiRate maps words per minute onto SAPI's -10..10 scale (0 ~ 180 wpm).
func sapiRate(wpm int) int {
	r := (wpm - 180) / 20
	if r < -10 {
		return -10
	}
	if r > 10 {
		return 10
	}
	return r
}

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
