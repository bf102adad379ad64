package errx

import (
	"errors"
	"sync"
)

var (
	sentinelsMu sync.RWMutex
	sentinels   = make(map[error]string)
)

// Define creates a sentinel error and records its category code in one step.
// Sentinels are meant to be declared as package-level variables.
func Define(code, msg string) error {
	err := errors.New(msg)
	sentinelsMu.Lock()
	sentinels[err] = code
	sentinelsMu.Unlock()
	return err
}

// CategoryOf returns the code and description registered for a sentinel.
// Unregistered sentinels fall back to the CLI category.
func CategoryOf(sentinel error) (code, description string) {
	sentinelsMu.RLock()
	code, ok := sentinels[sentinel]
	sentinelsMu.RUnlock()
	if !ok {
		return CodeCLI, DescCLI
	}
	description, _ = DescriptionFor(code)
	return code, description
}

// FromSentinel creates an Error from a sentinel error and optional message/cause.
// The lookup function decides the category; an empty code selects the CLI category.
func FromSentinel(sentinel error, lookup func(error) (code, description string), message string, cause error) *Error {
	code, desc := lookup(sentinel)
	if code == "" {
		code = CodeCLI
		desc = DescCLI
	}
	return CreateByCode(code, desc, message, cause).WithBase(sentinel)
}

// From creates an Error in the category registered for sentinel by Define.
// An empty message uses the sentinel's own text.
func From(sentinel error, message string, cause error) *Error {
	if message == "" && sentinel != nil {
		message = sentinel.Error()
	}
	return FromSentinel(sentinel, CategoryOf, message, cause)
}
