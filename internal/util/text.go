// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Lines splits text on line breaks. Windows line endings are normalised
// first so a trailing \r never reaches the terminal.
func Lines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// TruncateWidth truncates s to at most maxWidth display columns, adding an
// ellipsis when something was cut. Wide (CJK, emoji) runes count as two.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Wrap breaks text into lines no wider than width columns. Existing line
// breaks are kept (a message's "\n" is a real line break in the log); long
// lines are broken at spaces, and single words wider than width are split.
func Wrap(s string, width int) []string {
	if width <= 0 {
		return Lines(s)
	}

	var out []string
	for _, line := range Lines(s) {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, wrapLine(line, width)...)
	}
	return out
}

func wrapLine(line string, width int) []string {
	var (
		out     []string
		current strings.Builder
		curW    int
	)
	flush := func() {
		out = append(out, current.String())
		current.Reset()
		curW = 0
	}

	for _, word := range strings.Fields(line) {
		w := runewidth.StringWidth(word)
		for w > width {
			if curW > 0 {
				flush()
			}
			head := runewidth.Truncate(word, width, "")
			out = append(out, head)
			word = word[len(head):]
			w = runewidth.StringWidth(word)
		}
		if w == 0 {
			continue
		}
		if curW > 0 && curW+1+w > width {
			flush()
		}
		if curW > 0 {
			current.WriteByte(' ')
			curW++
		}
		current.WriteString(word)
		curW += w
	}
	if curW > 0 || len(out) == 0 {
		flush()
	}
	return out
}
