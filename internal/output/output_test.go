package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestTimerStateColor(t *testing.T) {
	assert.NotEmpty(t, TimerStateColor("running"))
	assert.NotEmpty(t, TimerStateColor("paused"))
	assert.Equal(t, "absent", TimerStateColor("absent"))
}

func TestDoneMark(t *testing.T) {
	assert.Contains(t, DoneMark(true), "\u2713")
	assert.Equal(t, "\u00b7", DoneMark(false))
}

func TestCompletionColor(t *testing.T) {
	assert.Contains(t, CompletionColor(100), "100%")
	assert.Contains(t, CompletionColor(60), "60%")
	assert.Contains(t, CompletionColor(10), "10%")
	assert.Contains(t, CompletionColor(0), "0%")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[#####-----]", ProgressBar(50, 10))
	assert.Equal(t, "[----------]", ProgressBar(-5, 10))
	assert.Equal(t, "[##########]", ProgressBar(150, 10))
	assert.Equal(t, "", ProgressBar(50, 0))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Habit", "Today"})
	require.NotNil(t, table)

	table.Append([]string{"read", "00:10:00"})
	table.Append([]string{"run", "00:30:00"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "read") || strings.Contains(result, "READ"),
		"table output should contain habit names")
	assert.True(t, strings.Contains(result, "run") || strings.Contains(result, "RUN"),
		"table output should contain habit names")
}
