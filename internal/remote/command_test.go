package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeArg(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "/tmp/a.pdf", "/tmp/a.pdf"},
		{"comma", "/tmp/a,b.pdf", "/tmp/a\x01,b.pdf"},
		{"parens", "/tmp/(x).pdf", "/tmp/\x01(x\x01).pdf"},
		{"escape byte", "/tmp/\x01.pdf", "/tmp/\x01\x01.pdf"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeArg(tt.input))
			assert.Equal(t, tt.input, UnescapeArg(tt.expected))
		})
	}
}

func TestOpenFileIn(t *testing.T) {
	assert.Equal(t, "openFileIn(/tmp/a.pdf,tab)", OpenFileIn("/tmp/a.pdf", TargetTab))
	assert.Equal(t, "openFileIn(/tmp/x\x01,y\x01(1\x01).pdf,tab)", OpenFileIn("/tmp/x,y(1).pdf", TargetTab))
}

func TestOpenFileInRoundTrip(t *testing.T) {
	paths := []string{
		"/tmp/a.pdf",
		"/tmp/report, final (v2).pdf",
		"/tmp/odd\x01name).pdf",
		"/tmp/,,((",
	}
	for _, p := range paths {
		cmd, err := Parse(OpenFileIn(p, TargetTab))
		require.NoError(t, err)
		assert.Equal(t, CmdOpenFileIn, cmd.Name)
		require.Len(t, cmd.Args, 2)
		assert.Equal(t, p, cmd.Args[0])
		assert.Equal(t, TargetTab, cmd.Args[1])
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Command
	}{
		{"bare", "raise", Command{Name: "raise"}},
		{"surrounding space", "  quit \r", Command{Name: "quit"}},
		{"one arg", "gotoPage(12)", Command{Name: "gotoPage", Args: []string{"12"}}},
		{"empty arg", "f()", Command{Name: "f", Args: []string{""}}},
		{"two args", "openFileIn(/a b.pdf,win)", Command{Name: "openFileIn", Args: []string{"/a b.pdf", "win"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{"", "(x)", "open(a", "open(a)b", "open(a(b))", "a,b"} {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrSyntax, line)
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "raise", Command{Name: CmdRaise}.String())
	assert.Equal(t, "gotoPage(3)", Command{Name: CmdGotoPage, Args: []string{"3"}}.String())
}
