//go:build !windows

package wininput

// New returns ErrUnsupported on non-Windows platforms.
func New() (Injector, error) {
	return nil, ErrUnsupported
}
