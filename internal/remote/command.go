// Package remote builds and parses the textual commands exchanged between
// viewer instances, e.g. "openFileIn(/tmp/a.pdf,tab)".
package remote

import (
	"errors"
	"fmt"
	"strings"
)

// EscapeByte marks the next byte of an argument as literal.
const EscapeByte = '\x01'

// Well known commands.
const (
	CmdOpenFile     = "openFile"
	CmdOpenFileIn   = "openFileIn"
	CmdGotoPage     = "gotoPage"
	CmdNextPage     = "nextPage"
	CmdPrevPage     = "prevPage"
	CmdRaise        = "raise"
	CmdCloseTab     = "closeTabOrQuit"
	CmdCloseWindow  = "closeWindowOrQuit"
	CmdQuit         = "quit"
	TargetTab       = "tab"
	TargetNewWindow = "win"
)

// ErrSyntax reports a command line that cannot be parsed.
var ErrSyntax = errors.New("command syntax error")

// Command is a parsed command: a name with optional arguments.
type Command struct {
	Name string
	Args []string
}

// EscapeArg prefixes every '(', ')', ',' and escape byte in s with EscapeByte.
func EscapeArg(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '(' || c == ')' || c == ',' || c == EscapeByte {
			sb.WriteByte(EscapeByte)
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// UnescapeArg reverses EscapeArg. A trailing lone escape byte is dropped.
func UnescapeArg(s string) string {
	if strings.IndexByte(s, EscapeByte) < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == EscapeByte {
			i++
			if i == len(s) {
				break
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// OpenFileIn returns the command that opens path in a new tab or window.
func OpenFileIn(path, target string) string {
	return Command{Name: CmdOpenFileIn, Args: []string{path, target}}.String()
}

// String renders c with escaped arguments.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	escaped := make([]string, len(c.Args))
	for i, a := range c.Args {
		escaped[i] = EscapeArg(a)
	}
	return c.Name + "(" + strings.Join(escaped, ",") + ")"
}

// Parse splits a command line into name and unescaped arguments.
// "raise" has no arguments; "gotoPage(3)" has one; "f()" has one empty one.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '(')
	if open < 0 {
		if line == "" || strings.ContainsAny(line, "),") {
			return Command{}, fmt.Errorf("%w: %q", ErrSyntax, line)
		}
		return Command{Name: line}, nil
	}
	if open == 0 {
		return Command{}, fmt.Errorf("%w: missing name in %q", ErrSyntax, line)
	}

	cmd := Command{Name: line[:open]}
	var arg strings.Builder
	closed := false
	for i := open + 1; i < len(line); i++ {
		c := line[i]
		switch {
		case closed:
			return Command{}, fmt.Errorf("%w: trailing text in %q", ErrSyntax, line)
		case c == EscapeByte:
			i++
			if i < len(line) {
				arg.WriteByte(line[i])
			}
		case c == ',':
			cmd.Args = append(cmd.Args, arg.String())
			arg.Reset()
		case c == ')':
			cmd.Args = append(cmd.Args, arg.String())
			closed = true
		case c == '(':
			return Command{}, fmt.Errorf("%w: unescaped '(' in %q", ErrSyntax, line)
		default:
			arg.WriteByte(c)
		}
	}
	if !closed {
		return Command{}, fmt.Errorf("%w: missing ')' in %q", ErrSyntax, line)
	}
	return cmd, nil
}
