// Package errors provides structured error types for the refptr library.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries context: the payload's Go type, a handle path, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseTable, errors.KindNotFound).
//		Path("table", "17").
//		GoType("*main.Cell").
//		Detail("handle was dropped").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Expired(errors.PhasePromote, "*main.Cell")
//	err := errors.OutOfBounds(errors.PhaseMemory, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// ErrExpired matches every expired-observer failure regardless of how it was built.
package errors
