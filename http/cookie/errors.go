package cookie

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature = errors.New("cookie signature verification failed")
	ErrInvalidFormat    = errors.New("invalid cookie value format")
	ErrDecryptionFailed = errors.New("failed to decrypt cookie value")
	ErrNoSecret         = errors.New("secret key base is not set")
)

// ErrCookieTooLarge is returned when a rendered cookie exceeds the maximal allowed size.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q is %d bytes, exceeds maximum of %d bytes", e.Name, e.Size, e.Max)
}
