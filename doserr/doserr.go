// Package doserr contains the DOS error codes which are returned by
// the kernel functions we emulate.
//
// Each code implements the error interface, so they may be returned
// from Go functions directly, and recovered with errors.As, or via
// our own helper As.
package doserr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Code is a DOS extended error code.
type Code uint16

// The DOS error codes we use.
const (
	None                  Code = 0
	FunctionNumberInvalid Code = 1
	FileNotFound          Code = 2
	PathNotFound          Code = 3
	TooManyOpenFiles      Code = 4
	AccessDenied          Code = 5
	InvalidHandle         Code = 6
	MCBDestroyed          Code = 7
	InsufficientMemory    Code = 8
	MBAddressInvalid      Code = 9
	EnvironmentInvalid    Code = 10
	FormatInvalid         Code = 11
	AccessCodeInvalid     Code = 12
	DataInvalid           Code = 13
	InvalidDrive          Code = 15
	RemoveCurrentDir      Code = 16
	NotSameDevice         Code = 17
	NoMoreFiles           Code = 18
	WriteProtected        Code = 19
	FileExists            Code = 80
)

// messages holds the human-readable versions of our codes, using the
// text COMMAND.COM shows.
var messages = map[Code]string{
	None:                  "No error",
	FunctionNumberInvalid: "Invalid function",
	FileNotFound:          "File not found",
	PathNotFound:          "Path not found",
	TooManyOpenFiles:      "Too many open files",
	AccessDenied:          "Access denied",
	InvalidHandle:         "Invalid handle",
	MCBDestroyed:          "Memory control blocks destroyed",
	InsufficientMemory:    "Insufficient memory",
	MBAddressInvalid:      "Invalid memory block address",
	EnvironmentInvalid:    "Invalid environment",
	FormatInvalid:         "Invalid format",
	AccessCodeInvalid:     "Invalid access code",
	DataInvalid:           "Invalid data",
	InvalidDrive:          "Invalid drive specification",
	RemoveCurrentDir:      "Attempt to remove current directory",
	NotSameDevice:         "Not same device",
	NoMoreFiles:           "No more files",
	WriteProtected:        "Write protect error",
	FileExists:            "File exists",
}

// Error implements the error interface.
func (c Code) Error() string {
	msg, ok := messages[c]
	if !ok {
		return fmt.Sprintf("DOS error %d", uint16(c))
	}
	return msg
}

// String returns the message for the code.
func (c Code) String() string {
	return c.Error()
}

// As converts the given error into a DOS error code.
//
// nil becomes None, errors which wrap a Code return that code, and
// host-side errors are mapped to the nearest DOS equivalent.  Anything
// unknown is reported as AccessDenied, which is what DOS itself uses as
// its catch-all.
func As(err error) Code {
	if err == nil {
		return None
	}

	var c Code
	if errors.As(err, &c) {
		return c
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return FileNotFound
	case errors.Is(err, fs.ErrExist):
		return FileExists
	case errors.Is(err, fs.ErrPermission):
		return AccessDenied
	case errors.Is(err, os.ErrClosed):
		return InvalidHandle
	}
	return AccessDenied
}
