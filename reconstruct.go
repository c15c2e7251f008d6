package fbstencil

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/fbstencil/gpucore"
)

// Path is the branch a stencil upload took.
type Path uint8

// Upload paths.
const (
	// PathNotApplicable means the host stencil was left untouched.
	PathNotApplicable Path = iota
	// PathFastZeroClear means the stencil (and alpha) were zeroed with
	// one full-screen draw.
	PathFastZeroClear
	// PathMultiPass means the stencil was rebuilt one bit-plane per draw.
	PathMultiPass
)

// String returns the path name.
func (p Path) String() string {
	switch p {
	case PathNotApplicable:
		return "not-applicable"
	case PathFastZeroClear:
		return "fast-zero-clear"
	case PathMultiPass:
		return "multi-pass"
	default:
		return fmt.Sprintf("Path(%d)", uint8(p))
	}
}

// Reason explains why an upload stopped short of a full reconstruction.
type Reason uint8

// Reasons.
const (
	ReasonNone Reason = iota
	ReasonUnmatchedDestination
	ReasonUnsupportedFormat
	ReasonUnreadableSource
	ReasonAlreadyZero
	ReasonNoRenderTarget
	ReasonShaderUnavailable
	ReasonDeviceError
	ReasonInvalidGeometry
)

var reasonNames = [...]string{
	ReasonNone:                 "none",
	ReasonUnmatchedDestination: "unmatched-destination",
	ReasonUnsupportedFormat:    "unsupported-format",
	ReasonUnreadableSource:     "unreadable-source",
	ReasonAlreadyZero:          "already-zero",
	ReasonNoRenderTarget:       "no-render-target",
	ReasonShaderUnavailable:    "shader-unavailable",
	ReasonDeviceError:          "device-error",
	ReasonInvalidGeometry:      "invalid-geometry",
}

// String returns the reason name.
func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Result describes one stencil upload.
type Result struct {
	// Modified reports whether the host stencil attachment was changed.
	Modified bool
	Path     Path
	Reason   Reason
	// UsedBits is the scanned bit-plane mask.
	UsedBits uint8
	// Draws counts quad draws. Device.Clear calls are not counted.
	Draws int
	// Err is the underlying error, if any.
	Err error
}

// Stats are cumulative counters of a Reconstructor.
type Stats struct {
	Calls          uint64
	NotApplicable  uint64
	FastClears     uint64
	MultiPass      uint64
	Draws          uint64
	ShaderFailures uint64
}

// Reconstructor keeps a host stencil attachment in sync with stencil data
// written into packed color framebuffers in emulated memory.
//
// A Reconstructor issues commands on its device from the calling goroutine
// and is not safe for concurrent use. It never flushes the device and never
// restores the previously bound render target; see [RenderTargetScope].
type Reconstructor struct {
	device gpucore.Device
	lookup FramebufferLookup
	mem    Memory
	opts   options
	log    *slog.Logger

	masks   *MaskStateCache
	texture uploadTexture

	program    gpucore.ShaderProgramID
	programErr error

	stats Stats
}

// New returns a Reconstructor drawing on device, resolving destinations
// through lookup and reading source pixels from mem.
func New(device gpucore.Device, lookup FramebufferLookup, mem Memory, opts ...Option) (*Reconstructor, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if lookup == nil || mem == nil {
		return nil, errors.New("fbstencil: nil framebuffer lookup or memory")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Reconstructor{
		device: device,
		lookup: lookup,
		mem:    mem,
		opts:   o,
		log:    o.logger,
		masks:  NewMaskStateCache(device),
	}
	return r, nil
}

func (r *Reconstructor) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return Logger()
}

// NotifyStencilUpload reacts to a write of size bytes at addr. When addr is
// the start of a tracked stencil-bearing framebuffer, the host stencil is
// rebuilt from the alpha channel of the written pixels. With skipZero, an
// all-zero source leaves the host stencil alone.
//
// It returns true iff the host stencil attachment was modified.
func (r *Reconstructor) NotifyStencilUpload(addr uint32, size int, skipZero bool) bool {
	return r.Notify(addr, size, skipZero).Modified
}

// Notify is NotifyStencilUpload returning the full outcome.
func (r *Reconstructor) Notify(addr uint32, size int, skipZero bool) Result {
	r.stats.Calls++
	res := r.notify(addr, size, skipZero)
	switch res.Path {
	case PathNotApplicable:
		r.stats.NotApplicable++
	case PathFastZeroClear:
		r.stats.FastClears++
	case PathMultiPass:
		r.stats.MultiPass++
	}
	r.stats.Draws += uint64(res.Draws)
	return res
}

func (r *Reconstructor) notify(addr uint32, size int, skipZero bool) Result {
	log := r.logger()

	vfb := r.lookup.Lookup(addr)
	if vfb == nil {
		return Result{Reason: ReasonUnmatchedDestination}
	}
	l := layoutOf(vfb.Format)
	if l == nil {
		return Result{Reason: ReasonUnsupportedFormat, Err: fmt.Errorf("framebuffer %#08x: %w", vfb.Address, ErrUnsupportedFormat)}
	}

	if !vfb.validGeometry() {
		return Result{Reason: ReasonInvalidGeometry, Err: fmt.Errorf("framebuffer %#08x: %dx%d stride %d: %w",
			vfb.Address, vfb.Width, vfb.Height, vfb.Stride, ErrInvalidGeometry)}
	}

	numPixels := vfb.NumPixels()
	src, ok := r.mem.Bytes(addr, vfb.SizeBytes())
	if !ok {
		return Result{Reason: ReasonUnreadableSource, Err: fmt.Errorf("read %d bytes at %#08x: %w", vfb.SizeBytes(), addr, ErrShortSource)}
	}
	used, err := UsedBits(vfb.Format, src, numPixels)
	if err != nil {
		return Result{Reason: ReasonUnreadableSource, Err: err}
	}

	log.Debug("fbstencil: stencil upload",
		"addr", fmt.Sprintf("%#08x", addr),
		"size", size,
		"format", vfb.Format.String(),
		"usedBits", fmt.Sprintf("%#02x", used))

	if used == 0 {
		if skipZero {
			return Result{Reason: ReasonAlreadyZero}
		}
		return r.fastZeroClear(vfb)
	}
	return r.multiPass(vfb, l, src, used)
}

// bindDestination binds vfb's render target with a viewport covering its
// render resolution.
func (r *Reconstructor) bindDestination(vfb *VirtualFramebuffer) error {
	if err := r.device.BindRenderTarget(vfb.Target); err != nil {
		return err
	}
	r.device.SetViewport(gpucore.Viewport{
		Width:    float32(vfb.RenderWidth),
		Height:   float32(vfb.RenderHeight),
		MaxDepth: 1,
	})
	return nil
}

func (r *Reconstructor) noRenderTarget(vfb *VirtualFramebuffer, used uint8) Result {
	r.logger().Warn("fbstencil: framebuffer has no render target",
		"addr", fmt.Sprintf("%#08x", vfb.Address))
	return Result{Reason: ReasonNoRenderTarget, UsedBits: used}
}

// fastZeroClear zeroes stencil and alpha, leaving RGB untouched.
func (r *Reconstructor) fastZeroClear(vfb *VirtualFramebuffer) Result {
	if vfb.Target == gpucore.InvalidID {
		return r.noRenderTarget(vfb, 0)
	}
	if err := r.bindDestination(vfb); err != nil {
		return r.deviceError(Result{}, "bind render target", err)
	}
	if err := r.device.DrawStencilClear(gpucore.ColorWriteAlpha, 0); err != nil {
		return r.deviceError(Result{}, "stencil clear draw", err)
	}
	return Result{Modified: true, Path: PathFastZeroClear, Draws: 1}
}

// extractionProgram returns the extraction program, building it on first
// use. A build failure is remembered until the device is invalidated.
func (r *Reconstructor) extractionProgram() (gpucore.ShaderProgramID, error) {
	if r.program != gpucore.InvalidID {
		return r.program, nil
	}
	if r.programErr != nil {
		return gpucore.InvalidID, r.programErr
	}
	id, err := r.device.CreateShaderProgram(extractionProgramDesc(r.opts.programSource))
	if err != nil {
		r.programErr = fmt.Errorf("%w: %w", ErrShaderUnavailable, err)
		r.stats.ShaderFailures++
		r.logger().Error("fbstencil: failed to build stencil upload program", "error", err)
		return gpucore.InvalidID, r.programErr
	}
	r.program = id
	return id, nil
}

// multiPass rebuilds the stencil one bit-plane per draw.
func (r *Reconstructor) multiPass(vfb *VirtualFramebuffer, l stencilLayout, src []byte, used uint8) Result {
	res := Result{Path: PathMultiPass, UsedBits: used}
	if vfb.Target == gpucore.InvalidID {
		return r.noRenderTarget(vfb, used)
	}

	prog, err := r.extractionProgram()
	if err != nil {
		return Result{Reason: ReasonShaderUnavailable, UsedBits: used, Err: err}
	}
	if r.opts.invalidate != nil {
		defer r.opts.invalidate()
	}

	width := min(vfb.Width, vfb.Stride)
	tex, err := r.texture.ensure(r.device, uint32(width), uint32(vfb.Height))
	if err != nil {
		return r.deviceError(res, "create upload texture", err)
	}
	pixels := convertToRGBA8(l, vfb.Format.BytesPerPixel(), src, vfb.Stride, width, vfb.Height)
	if err := r.device.WriteTexture(tex, pixels, uint32(width)*4); err != nil {
		return r.deviceError(res, "upload texture", err)
	}

	if err := r.bindDestination(vfb); err != nil {
		return r.deviceError(res, "bind render target", err)
	}
	if err := r.device.Clear(gpucore.ClearStencil, [4]float32{}, 0, 0); err != nil {
		return r.deviceError(res, "clear stencil", err)
	}
	res.Modified = true

	if err := r.device.SetQuad(buildQuad(vfb.Width, vfb.Height)); err != nil {
		return r.deviceError(res, "upload quad", err)
	}
	r.device.SetShaderProgram(prog)
	r.device.SetTexture(tex)
	r.device.SetColorWriteMask(gpucore.ColorWriteAlpha)

	values := 1 << l.bits()
	for i := 1; i < values; i += i {
		if int(used)&i == 0 {
			continue
		}
		mask, ref := l.maskAndValue(i)
		state, err := r.masks.GetOrCreate(mask)
		if err != nil {
			return r.deviceError(res, "mask state", err)
		}
		r.device.SetDepthStencilState(state, ref)
		r.device.SetUniforms([4]float32{float32(ref) / 255, 0, 0, 0})
		if err := r.device.DrawQuad(); err != nil {
			return r.deviceError(res, "extraction draw", err)
		}
		res.Draws++
	}

	r.logger().Debug("fbstencil: stencil reconstructed",
		"addr", fmt.Sprintf("%#08x", vfb.Address),
		"draws", res.Draws)
	return res
}

func (r *Reconstructor) deviceError(res Result, op string, err error) Result {
	r.logger().Warn("fbstencil: device error during stencil upload", "op", op, "error", err)
	res.Reason = ReasonDeviceError
	res.Err = fmt.Errorf("%s: %w", op, err)
	if !res.Modified {
		res.Path = PathNotApplicable
	}
	return res
}

// Stats returns the cumulative counters.
func (r *Reconstructor) Stats() Stats { return r.stats }

// MaskStates returns the write-mask state cache.
func (r *Reconstructor) MaskStates() *MaskStateCache { return r.masks }

// InvalidateDevice forgets every device object after device loss. The
// next upload rebuilds the extraction program, mask states and texture,
// and retries a program that previously failed to build.
func (r *Reconstructor) InvalidateDevice() {
	r.masks.Invalidate()
	r.texture.invalidate()
	r.program = gpucore.InvalidID
	r.programErr = nil
}

// Release destroys every device object owned by the Reconstructor.
func (r *Reconstructor) Release() {
	r.masks.Release()
	r.texture.release(r.device)
	if r.program != gpucore.InvalidID {
		r.device.DestroyShaderProgram(r.program)
	}
	r.program = gpucore.InvalidID
	r.programErr = nil
}
