package errx

import (
	"errors"

	"go.uber.org/zap"
)

// Fields extracts structured zap fields from err.
// An errx.Error contributes its code, category, message, every context
// entry (as "error.context.<key>") and its cause; other errors yield a
// single zap.Error field.
func Fields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return []zap.Field{zap.Error(err)}
	}
	fields := []zap.Field{
		zap.String("error.code", e.code),
		zap.String("error.category", e.description),
		zap.String("error.message", e.message),
		zap.Error(err),
	}
	for _, key := range sortedKeys(e.context) {
		fields = append(fields, zap.Any("error.context."+key, e.context[key]))
	}
	// Distinct field name so the cause does not collide with "error".
	if e.cause != nil {
		fields = append(fields, zap.NamedError("error.cause", e.cause))
	}
	return fields
}
