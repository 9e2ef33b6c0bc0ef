package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFileArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []FileArg
	}{
		{"none", nil, nil},
		{"single", []string{"a.pdf"}, []FileArg{{Path: "a.pdf"}}},
		{"page", []string{"a.pdf", ":12"}, []FileArg{{Path: "a.pdf", Page: 12}}},
		{"dest", []string{"a.pdf", "+chapter2"}, []FileArg{{Path: "a.pdf", Dest: "chapter2"}}},
		{"bad page is consumed", []string{"a.pdf", ":x", "b.pdf"}, []FileArg{{Path: "a.pdf"}, {Path: "b.pdf"}}},
		{
			name:     "mixed",
			args:     []string{"a.pdf", "b.pdf", ":3", "c.pdf", "+end"},
			expected: []FileArg{{Path: "a.pdf"}, {Path: "b.pdf", Page: 3}, {Path: "c.pdf", Dest: "end"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFileArgs(tt.args))
		})
	}
}
