package core

import "errors"

// ErrorKind groups errors by the part of the protocol that rejected the call.
type ErrorKind uint8

const (
	KindInitialization ErrorKind = iota + 1
	KindAuthorization
	KindAccountState
	KindTransfer
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindAuthorization:
		return "authorization"
	case KindAccountState:
		return "account_state"
	case KindTransfer:
		return "transfer"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a protocol error with a stable numeric code.
type Error struct {
	Kind ErrorKind
	Code uint32
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// byCode indexes every defined error by its code.
var byCode = make(map[uint32]*Error)

func newError(kind ErrorKind, code uint32, msg string) *Error {
	e := &Error{Kind: kind, Code: code, msg: msg}
	byCode[code] = e
	return e
}

// ErrorByCode returns the error defined with code. It lets remote callers
// turn a reported code back into a sentinel usable with errors.Is.
func ErrorByCode(code uint32) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}

var (
	ErrAlreadyInitialized          = newError(KindInitialization, 1, "already initialized")
	ErrAuthorizedSignerNotSet      = newError(KindInitialization, 2, "authorized signer not set")
	ErrInvalidSignature            = newError(KindAuthorization, 3, "invalid signature")
	ErrSignatureVerificationFailed = newError(KindAuthorization, 4, "signature verification failed")
	ErrInvalidNonce                = newError(KindAuthorization, 5, "invalid nonce")
	ErrUnauthorizedCaller          = newError(KindAuthorization, 6, "caller is not authorized")
	ErrNotActive                   = newError(KindAccountState, 7, "account is not active")
	ErrAlreadySwept                = newError(KindAccountState, 8, "account already swept")
	ErrAccountNotFound             = newError(KindAccountState, 9, "account not found")
	ErrTooManyAssets               = newError(KindAccountState, 10, "too many assets")
	ErrInsufficientBalance         = newError(KindTransfer, 11, "insufficient balance")
	ErrTransferFailed              = newError(KindTransfer, 12, "transfer failed")
	ErrInvalidAmount               = newError(KindValidation, 13, "invalid amount")
	ErrInvalidAddress              = newError(KindValidation, 14, "invalid address")
	ErrInvalidPublicKey            = newError(KindValidation, 15, "invalid public key")
)

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf classifies err. It returns false for errors that did not originate
// from the protocol, such as storage failures.
func KindOf(err error) (ErrorKind, bool) {
	e, ok := AsError(err)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
