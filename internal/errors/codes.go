// Package errors provides structured error handling for docdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and schema declaration errors
//   - 2XX: Input parse errors
//   - 3XX: Conversion and schema validation errors
//   - 4XX: Concurrency errors
//   - 5XX: Engine errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates schema or mapping declaration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryParse indicates malformed raw input errors.
	CategoryParse Category = "PARSE"
	// CategoryConvert indicates value conversion and validation errors.
	CategoryConvert Category = "CONVERT"
	// CategoryConcurrency indicates writer mutual-exclusion errors.
	CategoryConcurrency Category = "CONCURRENCY"
	// CategoryEngine indicates errors surfaced by the underlying engine.
	CategoryEngine Category = "ENGINE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Configuration errors (100-199)
	ErrCodeConfigInvalid      = "ERR_101_CONFIG_INVALID"
	ErrCodeFieldDuplicate     = "ERR_102_FIELD_DUPLICATE"
	ErrCodeTypeUnknown        = "ERR_103_TYPE_UNKNOWN"
	ErrCodeAttrInconsistent   = "ERR_104_ATTR_INCONSISTENT"
	ErrCodeSchemaIncompatible = "ERR_105_SCHEMA_INCOMPATIBLE"

	// Parse errors (200-299)
	ErrCodeParseFailed = "ERR_201_PARSE_FAILED"
	ErrCodeInputShape  = "ERR_202_INPUT_SHAPE"

	// Conversion and validation errors (300-399)
	ErrCodeConversionFailed      = "ERR_301_CONVERSION_FAILED"
	ErrCodeConversionUnsupported = "ERR_302_CONVERSION_UNSUPPORTED"
	ErrCodeSchemaViolation       = "ERR_303_SCHEMA_VIOLATION"

	// Concurrency errors (400-499)
	ErrCodeUpdaterBusy  = "ERR_401_UPDATER_BUSY"
	ErrCodeWriterLocked = "ERR_402_WRITER_LOCKED"

	// Engine errors (500-599)
	ErrCodeEngineFailed = "ERR_501_ENGINE_FAILED"
	ErrCodeEngineClosed = "ERR_502_ENGINE_CLOSED"
	ErrCodeCommitFailed = "ERR_503_COMMIT_FAILED"
)

// categoryFromCode derives the category from the numeric range of a code.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryEngine
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryParse
	case '3':
		return CategoryConvert
	case '4':
		return CategoryConcurrency
	default:
		return CategoryEngine
	}
}

// severityFromCode derives the severity from the code.
// Configuration errors are fatal; everything else is recoverable
// by the caller (skip, retry, or fix the input).
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation failing with this code
// may succeed on retry. Only transient engine failures qualify; parse,
// conversion, and configuration errors are deterministic.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeCommitFailed, ErrCodeWriterLocked:
		return true
	default:
		return false
	}
}
