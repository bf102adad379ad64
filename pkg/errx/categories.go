package errx

// CreateByCode creates an Error using the provided code, description, and message.
func CreateByCode(code, description, message string, cause error) *Error {
	if cause != nil {
		return Wrap(code, description, message, cause)
	}
	return New(code, description, message)
}

// CLI creates a CLI/argument validation error.
func CLI(message string) *Error {
	return New(CodeCLI, DescCLI, message)
}

// WrapCLI wraps a cause with a CLI/argument validation error.
func WrapCLI(message string, cause error) *Error {
	return Wrap(CodeCLI, DescCLI, message, cause)
}

// Config creates a configuration error. Missing or unreadable registry,
// catalog and config files are reported through this category.
func Config(message string) *Error {
	return New(CodeConfig, DescConfig, message)
}

// WrapConfig wraps a cause with a configuration error.
func WrapConfig(message string, cause error) *Error {
	return Wrap(CodeConfig, DescConfig, message, cause)
}

// Execution creates a tool execution failure.
func Execution(message string) *Error {
	return New(CodeExecution, DescExecution, message)
}

// WrapExecution wraps a cause with a tool execution failure.
func WrapExecution(message string, cause error) *Error {
	return Wrap(CodeExecution, DescExecution, message, cause)
}
