// Package connstr normalizes partial connect strings into
// user/password[@alias] form, prompting for missing credentials.
package connstr

import (
	"strings"

	"dbakit/pkg/errx"
)

// ErrCredentialsRequired is returned when a user or password is still
// blank after prompting.
var ErrCredentialsRequired = errx.Define(errx.CodeCLI, "username and password are required")

// Prompter supplies missing credentials.
type Prompter interface {
	Username() (string, error)
	Password() (string, error)
}

// Parts is a decomposed connect string.
type Parts struct {
	User     string
	Password string
	Alias    string
}

// String renders user/password[@alias], adding " as sysdba" for SYS.
func (p Parts) String() string {
	s := p.credential()
	if strings.EqualFold(p.User, "sys") {
		s += " as sysdba"
	}
	return s
}

// Redacted is String with the password masked.
func (p Parts) Redacted() string {
	return p.masked().String()
}

func (p Parts) credential() string {
	s := p.User + "/" + p.Password
	if p.Alias != "" {
		s += "@" + p.Alias
	}
	return s
}

func (p Parts) masked() Parts {
	if p.Password != "" {
		p.Password = mask
	}
	return p
}

const mask = "***"

// Mask replaces the password of every user/password[@alias] word in arg.
// Words without both a user and a password, such as "/" in
// "/ as sysdba", are kept.
func Mask(arg string) string {
	words := strings.Split(arg, " ")
	for i, w := range words {
		if !strings.Contains(w, "/") {
			continue
		}
		p := Split(w)
		if p.User == "" || p.Password == "" {
			continue
		}
		words[i] = p.masked().credential()
	}
	return strings.Join(words, " ")
}

// MaskArgs applies Mask to each argument.
func MaskArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = Mask(arg)
	}
	return out
}

// Split decomposes alias, user@alias, user/password and
// user/password@alias without prompting.
func Split(in string) Parts {
	in = strings.TrimSpace(in)
	var p Parts
	creds, alias, hasAlias := strings.Cut(in, "@")
	switch {
	case hasAlias:
		p.Alias = alias
	case !strings.Contains(in, "/"):
		return Parts{Alias: in}
	}
	p.User, p.Password, _ = strings.Cut(creds, "/")
	return p
}

// Parse splits in and fills a missing user or password from prompt. A
// nil prompt leaves them blank, which is an error.
func Parse(in string, prompt Prompter) (Parts, error) {
	p := Split(in)
	var err error
	if p.User == "" && prompt != nil {
		if p.User, err = prompt.Username(); err != nil {
			return Parts{}, errx.WrapCLI("read username", err)
		}
		p.User = strings.TrimSpace(p.User)
	}
	if p.Password == "" && prompt != nil {
		if p.Password, err = prompt.Password(); err != nil {
			return Parts{}, errx.WrapCLI("read password", err)
		}
	}
	if p.User == "" || p.Password == "" {
		return Parts{}, errx.From(ErrCredentialsRequired,
			"username and password are required when specifying a connect string", nil).
			WithContext("connect", in)
	}
	return p, nil
}
