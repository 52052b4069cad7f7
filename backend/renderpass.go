package backend

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// RenderTarget is the contract this layer consumes from the render-target
// subsystem: an ordered attachment list and a declared subpass count.
type RenderTarget interface {
	// ColorAttachments returns the target's ordered color attachment list.
	ColorAttachments() []Attachment
	// DepthAttachment returns the target's depth attachment, if it has one.
	DepthAttachment() (Attachment, bool)
	// SubpassCount returns the number of subpasses the target declares.
	SubpassCount() int
	// Extent2D returns the renderable area of the target.
	Extent2D() core1_0.Extent2D
}

// RenderPassParams are the per-pass parameters supplied at pass begin.
type RenderPassParams struct {
	// ClearValues provides one clear value per attachment (color attachments
	// in order, then depth) when LoadOp is AttachmentLoadOpClear.
	ClearValues []core1_0.ClearValue
	LoadOp      core1_0.AttachmentLoadOp
	StoreOp     core1_0.AttachmentStoreOp
	// RenderArea is the region of the target affected by the pass. It must
	// lie within the target's extent.
	RenderArea core1_0.Rect2D
	Viewport   core1_0.Viewport
}

type renderPassState int32

const (
	renderPassActive renderPassState = iota
	renderPassEnded
)

// RenderPass describes the identity of one in-flight render pass: the target
// being rendered to, the parameters it was begun with, and the currently
// active subpass. It is created by Context.BeginRenderPass, advanced with
// NextSubpass, and retired with End; a retired pass is not reusable.
//
// A RenderPass is owned by the single recording thread that began it and has
// no internal synchronization.
type RenderPass struct {
	context      *Context
	renderTarget RenderTarget
	params       RenderPassParams

	currentSubpass int
	state          renderPassState
}

// BeginRenderPass validates the render target against the pass parameters and
// this device's capabilities and returns a fresh RenderPass at subpass 0.
func (c *Context) BeginRenderPass(renderTarget RenderTarget, params RenderPassParams) (*RenderPass, error) {
	c.logger.Debug("Context::BeginRenderPass")

	if renderTarget == nil {
		return nil, errors.New("a render pass requires a render target")
	}

	if renderTarget.SubpassCount() < 1 {
		return nil, errors.Errorf("the render target declares %d subpasses, but a pass requires at least one", renderTarget.SubpassCount())
	}

	attachmentCount := len(renderTarget.ColorAttachments())
	depthAttachment, hasDepth := renderTarget.DepthAttachment()
	if hasDepth {
		attachmentCount++

		if depthAttachment.Format() != c.depthFormat {
			return nil, errors.Errorf("the render target's depth attachment format %s does not match the device depth format %s",
				depthAttachment.Format(), c.depthFormat)
		}
	}

	if params.LoadOp == core1_0.AttachmentLoadOpClear && len(params.ClearValues) != attachmentCount {
		return nil, errors.Errorf("%d clear values were provided for a render target with %d attachments",
			len(params.ClearValues), attachmentCount)
	}

	targetExtent := renderTarget.Extent2D()
	areaRight := params.RenderArea.Offset.X + params.RenderArea.Extent.Width
	areaBottom := params.RenderArea.Offset.Y + params.RenderArea.Extent.Height
	if params.RenderArea.Offset.X < 0 || params.RenderArea.Offset.Y < 0 ||
		areaRight > targetExtent.Width || areaBottom > targetExtent.Height {
		return nil, errors.Errorf("the render area %+v exceeds the render target extent %+v", params.RenderArea, targetExtent)
	}

	c.logger.Debug("  render pass begun",
		slog.Int("AttachmentCount", attachmentCount),
		slog.Int("SubpassCount", renderTarget.SubpassCount()),
	)

	return &RenderPass{
		context:      c,
		renderTarget: renderTarget,
		params:       params,
	}, nil
}

// RenderTarget returns the target this pass renders to.
func (p *RenderPass) RenderTarget() RenderTarget {
	return p.renderTarget
}

// Params returns the parameters the pass was begun with.
func (p *RenderPass) Params() RenderPassParams {
	return p.params
}

// CurrentSubpass returns the index of the currently active subpass.
func (p *RenderPass) CurrentSubpass() int {
	return p.currentSubpass
}

// NextSubpass advances the pass to its next subpass. Advancing a pass that
// has ended, or past the subpass count declared by the render target, is a
// contract violation.
func (p *RenderPass) NextSubpass() {
	if p.state != renderPassActive {
		panic("attempting to advance a render pass that is not active")
	}

	if p.currentSubpass+1 >= p.renderTarget.SubpassCount() {
		panic("attempting to advance a render pass past the final subpass declared by its render target")
	}

	p.currentSubpass++
}

// End retires the pass. The RenderPass is not reusable afterward- a new
// BeginRenderPass produces a fresh instance.
func (p *RenderPass) End() {
	if p.state != renderPassActive {
		panic("attempting to end a render pass that is not active")
	}

	p.state = renderPassEnded
}
