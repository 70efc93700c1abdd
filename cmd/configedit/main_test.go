package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"configedit/pkg/domain"
	"configedit/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace writes the aircraft fixture and a config pointing at it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aircraft.xml"), testutil.AircraftXML(), 0o600))
	cfg := fmt.Sprintf("assets:\n  driver: fs\n  fs_root: %s\nstorage:\n  driver: memory\nlog:\n  level: error\n", dir)
	path := filepath.Join(dir, "configedit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, cfg string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", cfg, "--doc", "aircraft.xml"}, args...)
	code := cli(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestShowPrintsTree(t *testing.T) {
	cfg := workspace(t)
	code, out, errOut := run(t, cfg, "show")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "project TEST")
	assert.Contains(t, out, "GV_N677F")
	assert.Contains(t, out, "fwd [dsm301]")
	assert.Contains(t, out, "VOLT3")
}

func TestNextIDs(t *testing.T) {
	cfg := workspace(t)
	code, out, errOut := run(t, cfg, "next-ids", "--dsm", "dsm301", "--sensor", "200")
	require.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "dsm 6\nsensor 400\nchannels 0 2 4 5 6 7\n", out)
}

func TestAddDSMSavesDocument(t *testing.T) {
	cfg := workspace(t)
	code, out, errOut := run(t, cfg, "add-dsm", "--name", "dsm310", "--location", "tail")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "create dsm dsm310")

	code, out, _ = run(t, cfg, "show")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "tail [dsm310]")

	code, out, _ = run(t, cfg, "next-ids")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "dsm 7\n", out)
}

func TestAddDSMDuplicateIsRejected(t *testing.T) {
	cfg := workspace(t)
	before, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "aircraft.xml"))
	require.NoError(t, err)

	code, _, errOut := run(t, cfg, "add-dsm", "--name", "dsm399", "--id", "2")
	assert.Equal(t, exitRejected, code)
	assert.Contains(t, errOut, "configedit:")

	after, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "aircraft.xml"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetProjectNameAndDelete(t *testing.T) {
	cfg := workspace(t)
	code, _, errOut := run(t, cfg, "set-project-name", "RENAMED")
	require.Equal(t, exitOK, code, errOut)

	code, _, errOut = run(t, cfg, "delete", "--dsm", "dsm305")
	require.Equal(t, exitOK, code, errOut)

	code, out, _ := run(t, cfg, "show")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "project RENAMED")
	assert.NotContains(t, out, "nose [dsm305]")
}

func TestDeleteUnknownDSM(t *testing.T) {
	cfg := workspace(t)
	code, _, _ := run(t, cfg, "delete", "--dsm", "dsm999")
	assert.Equal(t, exitRejected, code)
}

func TestDevicesListsCapabilityTable(t *testing.T) {
	cfg := workspace(t)
	code, out, errOut := run(t, cfg, "devices")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "CDP")
}

func TestMissingDocument(t *testing.T) {
	cfg := workspace(t)
	var stdout, stderr bytes.Buffer
	code := cli([]string{"--config", cfg, "show"}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "--doc")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitRejected, exitCode(domain.MalformedInputError{Field: "dsm id"}))
	assert.Equal(t, exitRejected, exitCode(domain.ValidationError{}))
	assert.Equal(t, exitFailure, exitCode(domain.InternalFaultError{Op: "save"}))
	assert.Equal(t, exitFailure, exitCode(os.ErrNotExist))
}

func TestMainUsesExitFunc(t *testing.T) {
	var got int
	orig := exitFunc
	exitFunc = func(code int) { got = code }
	defer func() { exitFunc = orig }()

	origArgs := os.Args
	os.Args = []string{"configedit", "--config", filepath.Join(t.TempDir(), "none.yaml"), "devices"}
	defer func() { os.Args = origArgs }()

	main()
	assert.Equal(t, exitOK, got)
}
