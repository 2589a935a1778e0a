// Package logging wraps log/slog with the attribute helpers, field-name
// conventions, and output handlers shared by every viddup component.
//
// Components receive a *slog.Logger handle and scope it with
// NewComponentLogger; nil loggers are tolerated everywhere via NewNop so
// library code never has to guard its log calls. Console output favors a
// compact human-readable layout; JSON output is available for scripting.
package logging
