package dca

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField is matched by every *MissingFieldError.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrFrameTooLarge is matched by every *FrameTooLargeError.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrSerialization means the header could not be encoded.
	ErrSerialization = errors.New("header serialization failed")

	ErrHeaderWritten    = errors.New("header already written")
	ErrHeaderNotWritten = errors.New("header must be written before frames")

	ErrNotDCA              = errors.New("DCA magic header not found")
	ErrUnsupportedVersion  = errors.New("unsupported DCA version")
	ErrHeaderTooLarge      = errors.New("DCA header length out of range")
	ErrNegativeFrameLength = errors.New("negative frame length")
)

// MissingFieldError reports a track field the header cannot be written without.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

var _ error = (*MissingFieldError)(nil)

// FrameTooLargeError reports a frame that does not fit the int16 length prefix.
type FrameTooLargeError struct {
	Size int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds the %d byte limit", e.Size, MaxFrameSize)
}

func (e *FrameTooLargeError) Is(target error) bool {
	return target == ErrFrameTooLarge
}

var _ error = (*FrameTooLargeError)(nil)

// UnsupportedVersionError carries the magic or version found in place of DCA1.
type UnsupportedVersionError struct {
	Found string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported DCA version %q", e.Found)
}

func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

var _ error = (*UnsupportedVersionError)(nil)
