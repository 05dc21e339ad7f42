// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLines_NormalisesCRLF(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, Lines("a\r\nb\n"))
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 10))
	assert.Equal(t, "hel...", TruncateWidth("hello world", 6))
	assert.Equal(t, "", TruncateWidth("hello", 0))
	assert.Equal(t, "世...", TruncateWidth("世界世界", 5))
}

func TestWrap_KeepsLineBreaks(t *testing.T) {
	got := Wrap("one two three\nfour", 7)
	assert.Equal(t, []string{"one two", "three", "four"}, got)
}

func TestWrap_SplitsLongWords(t *testing.T) {
	got := Wrap("abcdefghij", 4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, got)
}

func TestWrap_EmptyLinePreserved(t *testing.T) {
	got := Wrap("a\n\nb", 10)
	assert.Equal(t, []string{"a", "", "b"}, got)
}
