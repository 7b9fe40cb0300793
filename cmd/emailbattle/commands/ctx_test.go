package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	formatOutput = ""
	outputFile = ""
	queryExpr = ""

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
			return
		}
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestYAML writes a YAML file to a temp dir and returns the dir.
func writeTestYAML(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// scriptedModels declares an evaluator that follows up once, then
// terminates, and a respondent with two replies.
const scriptedModels = `
schema: scripted/replay/v1
models:
  - name: judge
    desc: Scripted Judge
    replies:
      - "Reply with five bullets of what you did last week."
    outputs:
      - '{"decision":"FOLLOW_UP","email_body":"Name the cases.","reasoning":"Vague."}'
      - '{"decision":"TERMINATED","email_body":"You are terminated.","reasoning":"Still vague."}'
  - name: clerk
    replies:
      - "- Closed 14 cases\n- Trained two staff"
      - "Case numbers are in the tracker."
  - name: erratic
    replies:
      - "Reply with five bullets."
    outputs:
      - '{"decision":"MAYBE","email_body":"Hmm.","reasoning":"Unsure."}'
`
