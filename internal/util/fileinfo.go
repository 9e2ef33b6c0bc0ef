package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStamp identifies one version of a file on disk. Two stamps taken
// before and after a rewrite differ in at least one field.
type FileStamp struct {
	Exists  bool
	ModTime int64  // Modification time in nanoseconds
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number, changes when the file is replaced by rename
}

// GetFileStamp stats path. A missing file yields a zero stamp with Exists
// false and no error; other stat failures are returned.
func GetFileStamp(path string) (FileStamp, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileStamp{}, nil
		}
		return FileStamp{}, err
	}

	stamp := FileStamp{
		Exists:  true,
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
	}
	stamp.Inode = inode(stat)
	return stamp, nil
}

// CanonicalPath resolves path to an absolute path with every symlink
// evaluated. It fails when the file cannot be reached.
func CanonicalPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// ExpandPath expands a leading "~/" and converts the result to an absolute path.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
