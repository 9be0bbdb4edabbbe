package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const counterNetlist = `
circuits:
  - name: cnt
    inputs: clk
    outputs: q[4]
    components:
      - type: Counter
        at: [0, 0]
        attrs: {width: 4, label: c}
        conns: clk=clk, out=q
  - name: top
    outputs: q[4]
    components:
      - type: Clock
        at: [0, 0]
        attrs: {label: clock}
        conns: out=clk
      - type: cnt
        at: [40, 0]
        attrs: {label: cnt}
        conns: clk=clk, q=q
`

func writeNetlist(t *testing.T, src string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "netlist.yaml")
	require.NoError(t, os.WriteFile(name, []byte(src), 0644))
	return name
}

// resetFlags restores flag defaults between executions of the same commands.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func init() {
	rootCmd.AddCommand(checkCmd, runCmd, traceCmd, showCmd, watchCmd)
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", writeNetlist(t, counterNetlist))
	require.NoError(t, err)
	require.Contains(t, out, "  cnt: 1 inputs, 1 outputs, 1 components")
	require.Contains(t, out, "* top: 0 inputs, 1 outputs, 2 components")
	require.Contains(t, out, "2 instances, status stable")

	_, err = execute(t, "check", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "-n", "4", "-p", "cnt.c", "-r", "10", writeNetlist(t, counterNetlist))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Equal(t, []string{
		"     0 c=0",
		"     1 c=1",
		"     2 c=1",
		"     3 c=2",
		"     4 c=2",
	}, lines)
}

func TestTrace(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	nl := writeNetlist(t, counterNetlist)
	_, err := execute(t, "trace", "--db", db, "-n", "4", "-p", "cnt.c", "-p", "clock", nl)
	require.NoError(t, err)

	out, err := execute(t, "show", "-r", "16", db, "cnt.c")
	require.NoError(t, err)
	require.Equal(t, "cnt.c:\n       0 0\n       1 1\n       3 2\n", out)

	// in memory
	out, err = execute(t, "trace", "--db", "", "-n", "2", "-p", "clock", nl)
	require.NoError(t, err)
	require.Equal(t, "clock:\n       0 0\n       1 1\n       2 0\n", out)
}
