package fbstencil

import (
	"fmt"

	"github.com/gogpu/fbstencil/gpucore"
)

// MaskStateCache maps a stencil write mask to a depth/stencil state that
// always passes, replaces with the reference value and writes only the
// masked bits. Entries are created on first use and live until the device
// is lost or the cache is released.
//
// MaskStateCache is not safe for concurrent use.
type MaskStateCache struct {
	device gpucore.Device
	states [256]gpucore.DepthStencilStateID
	count  int
}

// NewMaskStateCache returns an empty cache creating states on device.
func NewMaskStateCache(device gpucore.Device) *MaskStateCache {
	return &MaskStateCache{device: device}
}

// maskStateDesc is the depth/stencil state for one write mask.
func maskStateDesc(writeMask uint8) gpucore.DepthStencilDesc {
	return gpucore.DepthStencilDesc{
		Label:              fmt.Sprintf("stencil_upload_mask_%02x", writeMask),
		DepthEnable:        false,
		StencilEnable:      true,
		StencilReadMask:    0xFF,
		StencilWriteMask:   writeMask,
		StencilCompare:     gpucore.CompareAlways,
		StencilFailOp:      gpucore.StencilOpReplace,
		StencilDepthFailOp: gpucore.StencilOpReplace,
		StencilPassOp:      gpucore.StencilOpReplace,
	}
}

// GetOrCreate returns the state for writeMask, creating it on first use.
// A failed creation is not cached.
func (c *MaskStateCache) GetOrCreate(writeMask uint8) (gpucore.DepthStencilStateID, error) {
	if id := c.states[writeMask]; id != gpucore.InvalidID {
		return id, nil
	}
	desc := maskStateDesc(writeMask)
	id, err := c.device.CreateDepthStencilState(&desc)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("mask state %#02x: %w", writeMask, err)
	}
	c.states[writeMask] = id
	c.count++
	return id, nil
}

// Len returns the number of distinct masks with a live state.
func (c *MaskStateCache) Len() int { return c.count }

// Invalidate forgets all entries without touching the device. Use it after
// device loss, when the handles are already gone.
func (c *MaskStateCache) Invalidate() {
	c.states = [256]gpucore.DepthStencilStateID{}
	c.count = 0
}

// Release destroys all entries on the device and empties the cache.
func (c *MaskStateCache) Release() {
	for i, id := range c.states {
		if id != gpucore.InvalidID {
			c.device.DestroyDepthStencilState(id)
			c.states[i] = gpucore.InvalidID
		}
	}
	c.count = 0
}
