//go:build unix

package util

import (
	"os"
	"syscall"
)

func inode(info os.FileInfo) uint64 {
	if sysStat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(sysStat.Ino)
	}
	return 0
}
