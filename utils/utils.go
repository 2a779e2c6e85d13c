package utils

import (
	"errors"
	"unsafe"
)

// Str casts a byte slice to a string without copying. The caller must not
// mutate the slice afterwards.
func Str(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

func FlattenErrors(errs []error) error {
	switch len(errs) {
	default:
		return errors.Join(errs...)
	case 1:
		return errs[0]
	case 0:
		return nil
	}
}
