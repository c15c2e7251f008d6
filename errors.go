package fbstencil

import "errors"

// Sentinel errors for stencil reconstruction.
var (
	// ErrUnsupportedFormat is returned for pixel formats without a stencil
	// channel.
	ErrUnsupportedFormat = errors.New("fbstencil: pixel format carries no stencil")

	// ErrShortSource is returned when a source buffer is smaller than the
	// framebuffer extent.
	ErrShortSource = errors.New("fbstencil: source shorter than framebuffer extent")

	// ErrInvalidGeometry is reported for a framebuffer whose size, stride
	// or render size is not positive.
	ErrInvalidGeometry = errors.New("fbstencil: invalid framebuffer geometry")

	// ErrNilDevice is returned by New when no device is given.
	ErrNilDevice = errors.New("fbstencil: nil device")

	// ErrShaderUnavailable is reported once the extraction program failed
	// to build on the current device.
	ErrShaderUnavailable = errors.New("fbstencil: extraction program unavailable")
)
