package backend

import (
	"log/slog"

	"github.com/gogpu/fbstencil"
	"github.com/gogpu/fbstencil/backend/native"
)

// SetLogger configures the logger for fbstencil and the native device
// package. Pass nil to silence both.
func SetLogger(l *slog.Logger) {
	fbstencil.SetLogger(l)
	native.SetLogger(l)
}
