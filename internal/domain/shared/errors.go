package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrShiftAlreadyOpen    = NewDomainError("SHIFT_ALREADY_OPEN", "A cash shift is already open for this site")
	ErrShiftClosed         = NewDomainError("SHIFT_CLOSED", "Cash shift is already closed")
	ErrCashDrawerClosed    = NewDomainError("CASH_DRAWER_CLOSED", "No open cash shift for this site")
	ErrAllocationMismatch  = NewDomainError("ALLOCATION_MISMATCH", "Allocated quantities do not match the requested quantity")
	ErrSameLocation        = NewDomainError("SAME_LOCATION", "Origin and destination locations are the same")
	ErrCashEntryPending    = NewDomainError("CASH_ENTRY_PENDING", "Sale saved, cash reconciliation pending")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
