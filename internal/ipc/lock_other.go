//go:build !unix

package ipc

import (
	"errors"
	"fmt"
	"os"
)

type fileLock struct {
	path string
	f    *os.File
}

// acquireLock creates path exclusively. A lock file left by a crashed
// process has to be removed by hand.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyBound
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &fileLock{path: path, f: f}, nil
}

func (l *fileLock) release() error {
	err := l.f.Close()
	if rmErr := os.Remove(l.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
