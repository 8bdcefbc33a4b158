package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const (
	formattedDoc   = "node \"a\" {\n  fill {\n    color   = \"#3366FF\"\n    opacity = 0.5\n  }\n}\n"
	unformattedDoc = "node \"a\" {\n\n  fill {\n    color = \"#3366FF\"\n    opacity = 0.5\n  }\n}\n"
	invalidDoc     = "node \"a\" {\n  colour = \"#3366FF\"\n\n\n}\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func runFmtCmd(t *testing.T, check bool, paths ...string) (stdout, stderr string, err error) {
	t.Helper()
	prev := flagCheck
	flagCheck = check
	t.Cleanup(func() { flagCheck = prev })

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = runFmt(cmd, paths)
	return out.String(), errOut.String(), err
}

func TestRunFmt(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "clean.hcl", formattedDoc)
	messy := writeFile(t, dir, "messy.hcl", unformattedDoc)

	stdout, stderr, err := runFmtCmd(t, false, clean, messy)
	if err != nil {
		t.Fatalf("runFmt: %v (stderr %q)", err, stderr)
	}
	if stdout != messy+"\n" {
		t.Errorf("stdout = %q, want only %q", stdout, messy)
	}
	if got := readFile(t, messy); got != formattedDoc {
		t.Errorf("messy.hcl after fmt =\n%q\nwant:\n%q", got, formattedDoc)
	}
}

func TestRunFmt_Check(t *testing.T) {
	dir := t.TempDir()
	messy := writeFile(t, dir, "messy.hcl", unformattedDoc)

	stdout, _, err := runFmtCmd(t, true, messy)
	if !errors.Is(err, errReported) {
		t.Errorf("runFmt --check error = %v, want errReported", err)
	}
	if stdout != messy+"\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if got := readFile(t, messy); got != unformattedDoc {
		t.Error("--check rewrote the file")
	}
}

func TestRunFmt_RejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.hcl", invalidDoc)
	missing := filepath.Join(dir, "missing.hcl")

	stdout, stderr, err := runFmtCmd(t, false, bad, missing)
	if !errors.Is(err, errReported) {
		t.Errorf("runFmt error = %v, want errReported", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want no formatted files", stdout)
	}
	for _, want := range []string{"Error parsing " + bad, `unknown attribute "colour"`, "Error reading " + missing} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
	if got := readFile(t, bad); got != invalidDoc {
		t.Errorf("invalid document was rewritten:\n%q", got)
	}
}
