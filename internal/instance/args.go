package instance

import (
	"strconv"
	"strings"
)

// FileArg is a document named on the command line with an optional start
// page (":<page>") or named destination ("+<dest>").
type FileArg struct {
	Path string
	Page int
	Dest string
}

// ParseFileArgs groups positional arguments into files. A ":<n>" or
// "+<name>" argument applies to the file before it.
func ParseFileArgs(args []string) []FileArg {
	var files []FileArg
	for i := 0; i < len(args); i++ {
		f := FileArg{Path: args[i]}
		if i+1 < len(args) {
			next := args[i+1]
			switch {
			case strings.HasPrefix(next, ":"):
				if page, err := strconv.Atoi(next[1:]); err == nil && page > 0 {
					f.Page = page
				}
				i++
			case strings.HasPrefix(next, "+"):
				f.Dest = next[1:]
				i++
			}
		}
		files = append(files, f)
	}
	return files
}
