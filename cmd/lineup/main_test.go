package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGolfCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Position,Name + ID,Name,ID,Roster Position,Salary,Game Info,TeamAbbrev,AvgPointsPerGame\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "G,Golfer %d (%d),Golfer %d,%d,G,8000,Masters,,%d\n", i, 100+i, i, 100+i, 80-10*i)
	}
	path := filepath.Join(t.TempDir(), "DKSalaries_golf.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunWritesTemplate(t *testing.T) {
	input := writeGolfCSV(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"--schema", "draftkings_golf",
		"--input", input,
		"--solver-backend", "enumerate",
		"--exclude", "101",
		"--log-level", "error",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Equal(t, "G,G,G,G,G,G\n102,103,104,105,106,107\n", stdout.String())
}

func TestRunWritesFile(t *testing.T) {
	input := writeGolfCSV(t)
	output := filepath.Join(t.TempDir(), "upload.csv")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-s", "draftkings_golf", "-i", input, "-o", output, "--log-level", "error"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "G,G,G,G,G,G\n101,102,103,104,105,106\n", string(data))
}

func TestRunExitCodes(t *testing.T) {
	input := writeGolfCSV(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing input", args: []string{"--schema", "draftkings_golf"}, want: exitError},
		{name: "unknown schema", args: []string{"--schema", "cricket", "--input", input}, want: exitError},
		{name: "unknown backend", args: []string{"--schema", "draftkings_golf", "--input", input, "--solver-backend", "simplex"}, want: exitError},
		{name: "missing file", args: []string{"--schema", "draftkings_golf", "--input", input + ".missing"}, want: exitError},
		{name: "cap too low", args: []string{"--schema", "draftkings_golf", "--input", input, "--salary-cap", "40000"}, want: exitInfeasible},
		{name: "node budget", args: []string{"--schema", "draftkings_golf", "--input", input, "--solver-backend", "enumerate", "--solver-node-limit", "1"}, want: exitTimedOut},
		{name: "bad flag", args: []string{"--nope"}, want: exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append(tt.args, "--log-level", "panic")
			assert.Equal(t, tt.want, run(args, &stdout, &stderr), stderr.String())
		})
	}
}

func TestRunListSchemas(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--list-schemas", "--log-level", "error"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "fanduel_mlb")
	assert.Contains(t, stdout.String(), "draftkings_golf")
}
