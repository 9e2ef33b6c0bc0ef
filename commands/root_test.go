package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-xpdf-session/internal/pagestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRotation(t *testing.T) {
	tests := []struct {
		rot     int
		wantErr bool
	}{
		{0, false},
		{90, false},
		{180, false},
		{270, false},
		{45, true},
		{-90, true},
		{360, true},
	}

	for _, tt := range tests {
		err := validateRotation(tt.rot)
		if tt.wantErr {
			assert.Error(t, err, "rotation %d", tt.rot)
		} else {
			assert.NoError(t, err, "rotation %d", tt.rot)
		}
	}
}

// testEnv points configuration, logs and the pages file at temp dirs and
// returns the pages file path.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XPDF_CONFIG_DIR", filepath.Join(home, "config"))

	pages := filepath.Join(home, "pages")
	t.Setenv("XPDF_PAGES_FILE", pages)

	cfgFile = ""
	debug = false
	pagesOutput = "table"
	rotateArg = 0
	return pages
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootRejectsBadRotation(t *testing.T) {
	testEnv(t)
	_, _, err := execute(t, "--rot", "45")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rotation")
}

func TestRootRejectsMissingConfigFile(t *testing.T) {
	testEnv(t)
	_, _, err := execute(t, "--cfg", filepath.Join(t.TempDir(), "missing.toml"), "pages", "list")
	require.Error(t, err)
	cfgFile = ""
}

func TestSetupWritesLogFile(t *testing.T) {
	testEnv(t)
	home := os.Getenv("HOME")

	_, _, err := execute(t, "pages", "list")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(home, ".xpdf", "logs", "xpdf.log"))
	assert.NoError(t, err)
}

func TestPagesListJSONEmpty(t *testing.T) {
	pages := testEnv(t)
	_, err := os.Stat(pages)
	require.True(t, os.IsNotExist(err))

	stdout, _, err := execute(t, "pages", "list", "--output", "json")
	require.NoError(t, err)

	var records []pagestore.Record
	require.NoError(t, unmarshalRecords(stdout, &records))
	assert.Empty(t, records)
}
