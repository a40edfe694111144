// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(cs []Completion) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Value)
	}
	return out
}

func TestComplete_CommandNames(t *testing.T) {
	c := NewCompleter(NewRegistry())

	got := values(c.Complete("/se", 3))
	assert.Contains(t, got, "/set")
	assert.Contains(t, got, "/settings")
	assert.NotContains(t, got, "/save")

	// Exact match ranks first
	got = values(c.Complete("/set", 4))
	require.NotEmpty(t, got)
	assert.Equal(t, "/set", got[0])

	assert.Empty(t, c.Complete("hello", 5))
}

func TestComplete_EnumArgs(t *testing.T) {
	c := NewCompleter(NewRegistry())

	assert.ElementsMatch(t, []string{"json", "md", "markdown"}, values(c.Complete("/save ", 6)))
	assert.Equal(t, []string{"json"}, values(c.Complete("/save j", 7)))
	assert.Contains(t, values(c.Complete("/set top", 8)), "top_p")

	// Second argument of /set is free text
	assert.Empty(t, c.Complete("/set top_p ", 11))
}

func TestComplete_CursorInMiddle(t *testing.T) {
	c := NewCompleter(NewRegistry())
	got := values(c.Complete("/sav json", 4))
	assert.Contains(t, got, "/save")
}

func TestComplete_Models(t *testing.T) {
	c := NewCompleter(NewRegistry())
	assert.Empty(t, c.Complete("/model ", 7))

	c.ModelsFn = func() []string { return []string{"qwen2.5:7b", "llama3.1:8b"} }
	assert.Equal(t, []string{"qwen2.5:7b"}, values(c.Complete("/model q", 8)))
}

func TestComplete_Files(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversation_1.json"), []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("[]"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	c := NewCompleter(NewRegistry())
	prefix := dir + string(os.PathSeparator)

	got := values(c.Complete("/load "+prefix, len("/load "+prefix)))
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "archive") + string(os.PathSeparator),
		filepath.Join(dir, "conversation_1.json"),
	}, got)

	got = values(c.Complete("/load "+prefix+"conv", len("/load "+prefix+"conv")))
	assert.Equal(t, []string{filepath.Join(dir, "conversation_1.json")}, got)
}

func TestComplete_FilesFn(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.FilesFn = func(prefix string) []string { return []string{"a.json", "b.json"} }
	assert.Equal(t, []string{"a.json"}, values(c.Complete("/load a", 7)))
}

func TestLine(t *testing.T) {
	c := NewCompleter(NewRegistry())

	assert.Contains(t, c.Line("/hi"), "/history")
	assert.Equal(t, []string{"/save json"}, c.Line("/save j"))
	assert.Equal(t, []string{"/set max_tokens"}, c.Line("/set max_"))
	assert.Nil(t, c.Line("plain text"))
}

func TestApply(t *testing.T) {
	assert.Equal(t, "/model", Apply("/mo", Completion{Value: "/model"}))
	assert.Equal(t, "/save md", Apply("/save m", Completion{Value: "md"}))
	assert.Equal(t, "/set top_p", Apply("/set ", Completion{Value: "top_p"}))
}

func TestCompletionState(t *testing.T) {
	cs := NewCompletionState()
	assert.Equal(t, "", cs.Accept())

	cs.Update("/s", []Completion{{Value: "/save"}, {Value: "/set"}})
	assert.True(t, cs.Visible)
	assert.Equal(t, "/save", cs.Accept())

	cs.Next()
	assert.Equal(t, "/set", cs.Accept())
	cs.Next()
	assert.Equal(t, "/save", cs.Accept())
	cs.Prev()
	assert.Equal(t, "/set", cs.Accept())

	cs.Clear()
	assert.False(t, cs.Visible)
	assert.Equal(t, -1, cs.Selected)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KiB", formatFileSize(1536))
	assert.Equal(t, "2.0 MiB", formatFileSize(2*1024*1024))
}
