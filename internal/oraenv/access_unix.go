//go:build unix

package oraenv

import "golang.org/x/sys/unix"

// accessible reports whether path is readable and executable (searchable
// for directories) by the current user.
func accessible(path string) error {
	return unix.Access(path, unix.R_OK|unix.X_OK)
}
