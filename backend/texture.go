package backend

import (
	"sync/atomic"

	"github.com/vkngwrapper/core/v2/core1_0"
)

// Texture is the capability contract this layer consumes from the texture
// subsystem. The texture owns its layout-transition bookkeeping and its image
// view cache; this layer only reads facts and supplies view parameters.
type Texture interface {
	// Image returns the backing device image.
	Image() core1_0.Image
	// Format returns the texture's pixel format.
	Format() core1_0.Format
	// Layout returns the texture's current usage layout.
	Layout() core1_0.ImageLayout
	// Width and Height return the dimensions of the base mip level.
	Width() int
	Height() int
	// View returns a cached-or-created image view scoped to a single mip
	// level, array layer and aspect.
	View(mipLevel, layer int, aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error)
	// Destroy releases the texture's device resources. Called by an owning
	// TextureRef when its last holder is released.
	Destroy()
}

type sharedTexture struct {
	texture  Texture
	refCount int32
}

// TextureRef is a reference to a texture whose storage may be owned elsewhere
// (borrowed) or owned by this layer (shared, reference-counted). Both modes
// resolve to the same logical texture; only the shared mode ties the
// texture's lifetime to the reference holders.
//
// The zero value is an empty reference that resolves to nothing.
type TextureRef struct {
	borrowed Texture
	shared   *sharedTexture
}

// BorrowTexture creates a non-owning reference to a texture whose lifetime is
// managed by an external owner. The external owner must keep the texture
// alive for as long as the reference is in use.
func BorrowTexture(texture Texture) TextureRef {
	if texture == nil {
		panic("attempting to borrow a nil texture")
	}

	return TextureRef{borrowed: texture}
}

// ShareTexture creates an owning, reference-counted reference that keeps the
// texture alive as long as any holder exists. The texture is destroyed when
// the last holder calls Release.
func ShareTexture(texture Texture) TextureRef {
	if texture == nil {
		panic("attempting to share a nil texture")
	}

	return TextureRef{
		shared: &sharedTexture{
			texture:  texture,
			refCount: 1,
		},
	}
}

// IsValid returns true if the reference currently resolves to a live texture.
func (r TextureRef) IsValid() bool {
	if r.shared != nil {
		return atomic.LoadInt32(&r.shared.refCount) > 0
	}

	return r.borrowed != nil
}

// Resolve returns the single logical texture this reference names, regardless
// of ownership mode. The returned value must not be persisted beyond the
// reference's own lifetime: in shared mode the texture may be destroyed as
// soon as the last holder releases. Resolving an empty or released reference
// is a contract violation.
func (r TextureRef) Resolve() Texture {
	if r.shared != nil {
		if atomic.LoadInt32(&r.shared.refCount) <= 0 {
			panic("attempting to resolve a texture reference that has already been released")
		}
		return r.shared.texture
	}

	if r.borrowed == nil {
		panic("attempting to resolve an empty texture reference")
	}
	return r.borrowed
}

// Clone creates an additional holder. In shared mode the reference count is
// incremented; in borrowed mode the copy carries no ownership, same as the
// original.
func (r TextureRef) Clone() TextureRef {
	if r.shared != nil {
		if atomic.AddInt32(&r.shared.refCount, 1) <= 1 {
			panic("attempting to clone a texture reference that has already been released")
		}
		return TextureRef{shared: r.shared}
	}

	if r.borrowed == nil {
		panic("attempting to clone an empty texture reference")
	}
	return r
}

// Shared creates an additional owning holder. It is only legal on a reference
// constructed in shared mode- requesting ownership from a borrowed reference
// is a contract violation, because the reference has no ownership to extend.
func (r TextureRef) Shared() TextureRef {
	if r.shared == nil {
		panic("attempting to take ownership from a non-owning texture reference")
	}

	return r.Clone()
}

// Release drops this holder. In shared mode, the texture is destroyed when
// the holder count reaches zero; releasing more holders than were created is
// a contract violation. In borrowed mode Release is a no-op, since the
// reference never held ownership.
func (r TextureRef) Release() {
	if r.shared == nil {
		return
	}

	refCount := atomic.AddInt32(&r.shared.refCount, -1)
	if refCount < 0 {
		panic("attempting to release a texture reference that has already been released")
	}

	if refCount == 0 {
		r.shared.texture.Destroy()
	}
}
