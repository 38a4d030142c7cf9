// Package errs holds the typed error taxonomy every other package raises.
// Each kind carries a SQLSTATE class (§7) and a concrete 5-character
// SQLSTATE-style code, following the storage layer's own tagged-error
// convention.
package errs

import "fmt"

// SQLSTATEClass groups error kinds the way the wire protocol reports them.
type SQLSTATEClass string

const (
	ClassSyntaxOrAccess    SQLSTATEClass = "42"
	ClassDataException     SQLSTATEClass = "22"
	ClassIntegrityViolation SQLSTATEClass = "23"
	ClassInvalidTxState    SQLSTATEClass = "25"
	ClassTransactionRollback SQLSTATEClass = "40"
	ClassSystem            SQLSTATEClass = "XX"
)

// DdlError: malformed CREATE/ALTER, missing PK, duplicate constraints.
type DdlError struct{ Message string }

func (e *DdlError) Error() string           { return "ddl error: " + e.Message }
func (e *DdlError) SQLSTATE() string        { return "42000" }
func (e *DdlError) Class() SQLSTATEClass    { return ClassSyntaxOrAccess }
func NewDdlError(format string, args ...interface{}) *DdlError {
	return &DdlError{Message: fmt.Sprintf(format, args...)}
}

// NameErrorNotFound: unknown column/table/field, including projections over
// absent versions.
type NameErrorNotFound struct{ Name string }

func (e *NameErrorNotFound) Error() string        { return fmt.Sprintf("name not found: %s", e.Name) }
func (e *NameErrorNotFound) SQLSTATE() string     { return "42000" }
func (e *NameErrorNotFound) Class() SQLSTATEClass { return ClassSyntaxOrAccess }
func NewNameErrorNotFound(name string) *NameErrorNotFound {
	return &NameErrorNotFound{Name: name}
}

// NameErrorDuplicate: AddColumn of an existing name; duplicate alias.
type NameErrorDuplicate struct{ Name string }

func (e *NameErrorDuplicate) Error() string        { return fmt.Sprintf("duplicate name: %s", e.Name) }
func (e *NameErrorDuplicate) SQLSTATE() string     { return "42000" }
func (e *NameErrorDuplicate) Class() SQLSTATEClass { return ClassSyntaxOrAccess }
func NewNameErrorDuplicate(name string) *NameErrorDuplicate {
	return &NameErrorDuplicate{Name: name}
}

// NameErrorAmbiguous: unqualified column matches multiple from-items.
type NameErrorAmbiguous struct{ Name string }

func (e *NameErrorAmbiguous) Error() string        { return fmt.Sprintf("ambiguous name: %s", e.Name) }
func (e *NameErrorAmbiguous) SQLSTATE() string     { return "42000" }
func (e *NameErrorAmbiguous) Class() SQLSTATEClass { return ClassSyntaxOrAccess }
func NewNameErrorAmbiguous(name string) *NameErrorAmbiguous {
	return &NameErrorAmbiguous{Name: name}
}

// DatatypeMismatch: cross-family comparison, wrong type in SET.
type DatatypeMismatch struct{ Message string }

func (e *DatatypeMismatch) Error() string        { return "datatype mismatch: " + e.Message }
func (e *DatatypeMismatch) SQLSTATE() string     { return "42804" }
func (e *DatatypeMismatch) Class() SQLSTATEClass { return ClassSyntaxOrAccess }
func NewDatatypeMismatch(format string, args ...interface{}) *DatatypeMismatch {
	return &DatatypeMismatch{Message: fmt.Sprintf(format, args...)}
}

// InvalidParameterValue: negation of text/bool, out-of-range literal.
type InvalidParameterValue struct{ Message string }

func (e *InvalidParameterValue) Error() string        { return "invalid parameter value: " + e.Message }
func (e *InvalidParameterValue) SQLSTATE() string     { return "22023" }
func (e *InvalidParameterValue) Class() SQLSTATEClass { return ClassDataException }
func NewInvalidParameterValue(format string, args ...interface{}) *InvalidParameterValue {
	return &InvalidParameterValue{Message: fmt.Sprintf(format, args...)}
}

// NumericValueOutOfRange: integer literal too big for int64.
type NumericValueOutOfRange struct{ Literal string }

func (e *NumericValueOutOfRange) Error() string {
	return fmt.Sprintf("numeric value out of range: %s", e.Literal)
}
func (e *NumericValueOutOfRange) SQLSTATE() string     { return "22003" }
func (e *NumericValueOutOfRange) Class() SQLSTATEClass { return ClassDataException }
func NewNumericValueOutOfRange(literal string) *NumericValueOutOfRange {
	return &NumericValueOutOfRange{Literal: literal}
}

// DataExceptionIllegalOperation: non-boolean in WHERE/ON.
type DataExceptionIllegalOperation struct{ Message string }

func (e *DataExceptionIllegalOperation) Error() string {
	return "illegal operation: " + e.Message
}
func (e *DataExceptionIllegalOperation) SQLSTATE() string     { return "22000" }
func (e *DataExceptionIllegalOperation) Class() SQLSTATEClass { return ClassDataException }
func NewDataExceptionIllegalOperation(format string, args ...interface{}) *DataExceptionIllegalOperation {
	return &DataExceptionIllegalOperation{Message: fmt.Sprintf(format, args...)}
}

// IntegrityConstraintNotNullViolation: INSERT missing a NOT-NULL non-PK
// column in every active version.
type IntegrityConstraintNotNullViolation struct{ Column string }

func (e *IntegrityConstraintNotNullViolation) Error() string {
	return fmt.Sprintf("null value in column %q violates not-null constraint", e.Column)
}
func (e *IntegrityConstraintNotNullViolation) SQLSTATE() string     { return "23502" }
func (e *IntegrityConstraintNotNullViolation) Class() SQLSTATEClass { return ClassIntegrityViolation }
func NewIntegrityConstraintNotNullViolation(column string) *IntegrityConstraintNotNullViolation {
	return &IntegrityConstraintNotNullViolation{Column: column}
}

// IntegrityConstraintUniqueViolation: INSERT with an existing live APK.
type IntegrityConstraintUniqueViolation struct{ Message string }

func (e *IntegrityConstraintUniqueViolation) Error() string {
	return "unique violation: " + e.Message
}
func (e *IntegrityConstraintUniqueViolation) SQLSTATE() string     { return "23505" }
func (e *IntegrityConstraintUniqueViolation) Class() SQLSTATEClass { return ClassIntegrityViolation }
func NewIntegrityConstraintUniqueViolation(format string, args ...interface{}) *IntegrityConstraintUniqueViolation {
	return &IntegrityConstraintUniqueViolation{Message: fmt.Sprintf(format, args...)}
}

// InvalidTransactionState: BEGIN in tx, COMMIT outside tx, etc.
type InvalidTransactionState struct{ Message string }

func (e *InvalidTransactionState) Error() string        { return "invalid transaction state: " + e.Message }
func (e *InvalidTransactionState) SQLSTATE() string     { return "25000" }
func (e *InvalidTransactionState) Class() SQLSTATEClass { return ClassInvalidTxState }
func NewInvalidTransactionState(format string, args ...interface{}) *InvalidTransactionState {
	return &InvalidTransactionState{Message: fmt.Sprintf(format, args...)}
}

// DeadlockDetected: substrate lock-wait timeout.
type DeadlockDetected struct{ Message string }

func (e *DeadlockDetected) Error() string        { return "deadlock detected: " + e.Message }
func (e *DeadlockDetected) SQLSTATE() string     { return "40001" }
func (e *DeadlockDetected) Class() SQLSTATEClass { return ClassTransactionRollback }
func NewDeadlockDetected(format string, args ...interface{}) *DeadlockDetected {
	return &DeadlockDetected{Message: fmt.Sprintf(format, args...)}
}

// SyntaxError: the parser rejected the statement outright, or it used a
// construct outside the supported SQL surface (§6's parser contract).
type SyntaxError struct{ Message string }

func (e *SyntaxError) Error() string        { return "syntax error: " + e.Message }
func (e *SyntaxError) SQLSTATE() string     { return "42601" }
func (e *SyntaxError) Class() SQLSTATEClass { return ClassSyntaxOrAccess }
func NewSyntaxError(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

// SystemError: corruption/deserialization/substrate-internal.
type SystemError struct{ Message string }

func (e *SystemError) Error() string        { return "system error: " + e.Message }
func (e *SystemError) SQLSTATE() string     { return "58000" }
func (e *SystemError) Class() SQLSTATEClass { return ClassSystem }
func NewSystemError(format string, args ...interface{}) *SystemError {
	return &SystemError{Message: fmt.Sprintf(format, args...)}
}
