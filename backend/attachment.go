package backend

import (
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Attachment describes one color/depth/stencil attachment: a texture
// reference plus the mip level and array layer being rendered to. It is a
// value type, copied freely and held by render targets.
//
// Every fact an Attachment reports is derived on demand from the referenced
// texture rather than cached, so it can never go stale when the texture's
// layout changes. All derivations panic if the binding has outlived its
// texture.
type Attachment struct {
	Texture TextureRef
	Level   int
	Layer   int
}

// Image returns the device image backing the attachment's texture.
func (a Attachment) Image() core1_0.Image {
	return a.Texture.Resolve().Image()
}

// Format returns the attachment's pixel format.
func (a Attachment) Format() core1_0.Format {
	return a.Texture.Resolve().Format()
}

// Layout returns the texture's current usage layout. The texture is the sole
// owner of layout-transition bookkeeping; this is a read-through.
func (a Attachment) Layout() core1_0.ImageLayout {
	return a.Texture.Resolve().Layout()
}

// Extent2D returns the attachment's dimensions at the bound mip level,
// halved per level and floored at 1.
func (a Attachment) Extent2D() core1_0.Extent2D {
	texture := a.Texture.Resolve()

	width := texture.Width() >> uint(a.Level)
	if width < 1 {
		width = 1
	}

	height := texture.Height() >> uint(a.Level)
	if height < 1 {
		height = 1
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// View returns an image view scoped to the bound mip level and layer for the
// provided aspect. View creation and caching is delegated to the texture.
func (a Attachment) View(aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error) {
	return a.Texture.Resolve().View(a.Level, a.Layer, aspect)
}

// SubresourceRange returns the single-mip, single-layer range the attachment
// binds for the provided aspect.
func (a Attachment) SubresourceRange(aspect core1_0.ImageAspectFlags) core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   a.Level,
		LevelCount:     1,
		BaseArrayLayer: a.Layer,
		LayerCount:     1,
	}
}
