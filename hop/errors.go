package hop

import "fmt"

// An ErrorCode is a stable numeric code surfaced over the RPC boundary.
type ErrorCode int

// Stable error codes.
const (
	CodeDataTooLarge        ErrorCode = 1001
	CodePoolFull            ErrorCode = 1002
	CodeDuplicateEntry      ErrorCode = 1003
	CodeNotFound            ErrorCode = 1004
	CodeEmptyData           ErrorCode = 1005
	CodeEncoding            ErrorCode = 1006
	CodeInvalidSignature    ErrorCode = 1009
	CodeNotRecipient        ErrorCode = 1010
	CodeNoRecipients        ErrorCode = 1011
	CodeInvalidRecipientKey ErrorCode = 1012
)

// An Error is a pool error carrying a stable code.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("hop error %d: %s", e.Code, e.Message)
}

// Sentinel errors. Callers match with errors.Is.
var (
	ErrDataTooLarge        = &Error{Code: CodeDataTooLarge, Message: "data too large"}
	ErrPoolFull            = &Error{Code: CodePoolFull, Message: "pool full"}
	ErrDuplicateEntry      = &Error{Code: CodeDuplicateEntry, Message: "duplicate entry"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrEmptyData           = &Error{Code: CodeEmptyData, Message: "empty data"}
	ErrEncoding            = &Error{Code: CodeEncoding, Message: "encoding failure"}
	ErrInvalidSignature    = &Error{Code: CodeInvalidSignature, Message: "invalid signature"}
	ErrNotRecipient        = &Error{Code: CodeNotRecipient, Message: "not a recipient"}
	ErrNoRecipients        = &Error{Code: CodeNoRecipients, Message: "no recipients"}
	ErrInvalidRecipientKey = &Error{Code: CodeInvalidRecipientKey, Message: "invalid recipient key"}
)

// Is matches errors by code so wrapped values compare against sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
