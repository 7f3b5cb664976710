package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messy = "[TREE]\n\n  [SEL]\n    [COND   p1=\"player_in_range\"  p2=\"1\"]\n      [TASK p1=\"attack\"]\n    [TASK p1=\"idle\"]\n"

const canonical = "[TREE]\n  [SEL]\n    [COND p1=\"player_in_range\" p2=\"1\"]\n      [TASK p1=\"attack\"]\n    [TASK p1=\"idle\"]\n"

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runCmd(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCmd()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: btsc")

	code, _, errOut = runCmd("explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "monster_basic.bts", messy)

	code, out, _ := runCmd("fmt", path)
	require.Equal(t, 0, code)
	assert.Equal(t, canonical, out)

	code, _, _ = runCmd("fmt", "-w", path)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonical, string(data))

	bad := writeScript(t, dir, "bad.bts", "[TREE]\n    [SEL]\n")
	code, _, errOut := runCmd("fmt", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "command failed")
}

func TestCompileDecompile(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "monster_troll.bts", messy)
	out := filepath.Join(dir, "troll.btc")

	code, _, _ := runCmd("compile", path, "-o", out)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tree, err := bt.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, canonical, bt.Format(tree))

	code, text, _ := runCmd("decompile", out)
	require.Equal(t, 0, code)
	assert.Equal(t, canonical, text)

	code, _, _ = runCmd("compile", path)
	assert.Equal(t, 1, code)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "a.bts", canonical)
	bad := writeScript(t, dir, "b.bts", "[TREE]\n  [SEL]\n    [TASK p1=\"break_stuff\"]\n")

	code, _, _ := runCmd("check", good)
	assert.Equal(t, 0, code)

	code, out, _ := runCmd("check", good, bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `unknown task "break_stuff"`)

	code, _, _ = runCmd("check", "--known", "break_stuff", bad)
	assert.Equal(t, 0, code)

	code, out, _ = runCmd("check", "--known", "idle,attack", good)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `unknown condition "player_in_range"`)
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	troll := writeScript(t, dir, "monster_troll.bts", canonical)
	bat := writeScript(t, dir, "monster_bat.bts", "[TREE]\n  [SEL]\n    [TASK p1=\"idle\"]\n")
	out := filepath.Join(dir, "scripts.bundle")

	code, _, _ := runCmd("bundle", "-o", out, "--compress", "zstd", troll, bat)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	f, err := framer.New(nil)
	require.NoError(t, err)
	b, err := ai.UnmarshalBundle(data, f)
	require.NoError(t, err)
	assert.Len(t, b.Entries, 2)

	tree, ok, err := b.Tree(ai.MonsterTroll)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, canonical, bt.Format(tree))

	stray := writeScript(t, dir, "dragon.bts", canonical)
	code, _, _ = runCmd("bundle", "-o", out, stray)
	assert.Equal(t, 1, code)

	code, _, _ = runCmd("bundle", "-o", out, "--compress", "rot13", troll)
	assert.Equal(t, 1, code)
}

func TestList(t *testing.T) {
	code, out, _ := runCmd("list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "condition player_in_range\n")
	assert.Contains(t, out, "task attack\n")
	assert.Contains(t, out, "task attack_special\n")
	assert.Less(t, strings.Index(out, "condition "), strings.Index(out, "task "))
}
