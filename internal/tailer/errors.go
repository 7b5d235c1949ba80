package tailer

import (
	"errors"
	"io/fs"
	"syscall"
)

// ErrPermanent marks a failure that retrying cannot fix. A tailer that hits
// one closes its source.
var ErrPermanent = errors.New("permanent source failure")

var (
	errRotated  = errors.New("file replaced at path")
	errVanished = errors.New("file removed from path")
)

// Permanent reports whether err should close the source rather than retry it.
// Missing files and transient I/O errors are retried; revoked permissions,
// removed devices and non-regular files are not.
func Permanent(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPermanent):
		return true
	case errors.Is(err, fs.ErrPermission):
		return true
	case errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO), errors.Is(err, syscall.EIO):
		return true
	}
	return false
}
