// Package errx provides structured, code-based errors for dbakit.
//
// Every error that leaves a dbakit package carries:
//   - A stable 5-digit error code (e.g., "76000" for environment validation)
//   - A category description (e.g., "Environment validation error")
//   - A user-facing message
//   - Optional structured context (key-value pairs)
//   - Optional cause and base sentinel errors
//
// Error codes follow a scheme where the first two digits represent the domain:
//   - 70xxx: CLI/argument validation errors
//   - 71xxx: Configuration errors (registry, catalog, config files)
//   - 72xxx: Identity required (no instance or home could be resolved)
//   - 73xxx: Tool execution failures (spawn, timeout)
//   - 74xxx: Tool reported errors (coded messages found in tool output)
//   - 75xxx: Message lookup errors
//   - 76xxx: Environment validation errors
//
// Sentinels are declared once with Define, which records their category:
//
//	var ErrHomeNotFound = errx.Define(errx.CodeEnvironment, "installation home not found")
//
//	err := errx.From(ErrHomeNotFound, "home /u01/app/oracle does not exist", nil).
//		WithContext("home", "/u01/app/oracle")
//
//	if errors.Is(err, ErrHomeNotFound) {
//		// Handle specific error
//	}
//
//	fmt.Println(errx.UserString(err))  // User-friendly message
//	fmt.Println(errx.DebugString(err)) // Full debug details
package errx
