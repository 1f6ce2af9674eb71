package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageUnavailable covers blob or database I/O failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSignatureInvalid is returned for tampered or mis-keyed signatures.
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrSignatureExpired is returned once a signed grant's expiry has passed.
	ErrSignatureExpired = errors.New("signature expired")
	// ErrImageDecode is returned when a source image cannot be decoded.
	ErrImageDecode = errors.New("image decode failed")
)
