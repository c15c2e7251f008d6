package fbstencil

import "log/slog"

// Option configures a Reconstructor.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	invalidate    func()
	programSource string
}

func defaultOptions() options {
	return options{
		programSource: extractionWGSL,
	}
}

// WithLogger sets the logger of one Reconstructor, overriding the package
// logger set by SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStateInvalidator registers a hook called after every multi-pass
// reconstruction. Reconstruction rebinds the shader program, texture,
// viewport and depth/stencil state, so a renderer that caches those
// bindings must forget them.
//
// Example:
//
//	r, err := fbstencil.New(dev, tracker, mem,
//	    fbstencil.WithStateInvalidator(renderer.ForgetBindings))
func WithStateInvalidator(fn func()) Option {
	return func(o *options) {
		o.invalidate = fn
	}
}

// WithProgramSource replaces the WGSL source of the extraction program.
// The entry points must stay vs_main and fs_main.
func WithProgramSource(wgsl string) Option {
	return func(o *options) {
		o.programSource = wgsl
	}
}
