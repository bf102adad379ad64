// Package passwd reads stored credentials from a name:user:password
// file, optionally base64 encoded.
package passwd

import (
	"bufio"
	"encoding/base64"
	"os"
	"strings"

	"dbakit/pkg/errx"
)

// DefaultPath is the conventional password file location under $HOME.
const DefaultPath = "dba/etc/.passwd"

var (
	ErrFileUnreadable = errx.Define(errx.CodeConfig, "password file unreadable")
	ErrNotFound       = errx.Define(errx.CodeLookup, "no stored password")
	ErrBadEncoding    = errx.Define(errx.CodeConfig, "stored password is not valid base64")
)

// Lookup returns the password stored for name and user. User names are
// compared case-insensitively. With decode set the stored value is
// base64 decoded.
func Lookup(path, name, user string, decode bool) (string, error) {
	// #nosec G304 -- path is chosen by the operator.
	f, err := os.Open(path)
	if err != nil {
		return "", errx.From(ErrFileUnreadable, "cannot open password file "+path, err).
			WithContext("path", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Count(line, ":") != 2 {
			continue
		}
		fields := strings.Split(line, ":")
		if fields[0] != name || !strings.EqualFold(fields[1], user) || fields[2] == "" {
			continue
		}
		if !decode {
			return fields[2], nil
		}
		plain, err := base64.StdEncoding.DecodeString(fields[2])
		if err != nil {
			return "", errx.From(ErrBadEncoding, "password for "+user+"@"+name+" is not valid base64", err).
				WithContext("name", name).
				WithContext("user", user)
		}
		return string(plain), nil
	}
	if err := scanner.Err(); err != nil {
		return "", errx.From(ErrFileUnreadable, "cannot read password file "+path, err).
			WithContext("path", path)
	}
	return "", errx.From(ErrNotFound, "no password stored for "+user+"@"+name, nil).
		WithContext("name", name).
		WithContext("user", user)
}
