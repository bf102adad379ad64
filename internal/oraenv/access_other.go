//go:build !unix

package oraenv

import (
	"errors"
	"os"
)

func accessible(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o500 != 0o500 {
		return errors.New("permission denied")
	}
	return nil
}
