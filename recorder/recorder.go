package recorder

import (
	"fmt"
	"io"
	"log"

	vk "github.com/goki/vulkan"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderproj/images"
	"github.com/richinsley/goshaderproj/renderer"
	"github.com/richinsley/goshaderproj/vulkanapp"
)

// Options controls an offline capture. Duration is wall-clock seconds of
// output; playback advances by exactly 1/FPS per frame regardless of how
// long each frame takes to render.
type Options struct {
	Width    uint32
	Height   uint32
	FPS      int
	Duration float64
	Output   string
	Codec    string
}

// FrameCount is the number of frames a capture with these options produces.
func (o Options) FrameCount() int {
	return int(o.Duration * float64(o.FPS))
}

func (o Options) frameSize() int {
	return int(o.Width) * int(o.Height) * 4
}

// inputArgs describes the raw RGBA stream piped into ffmpeg.
func (o Options) inputArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", o.Width, o.Height),
		"r":       o.FPS,
	}
}

func (o Options) outputArgs() ffmpeg.KwArgs {
	codec := o.Codec
	if codec == "" {
		codec = "libx264"
	}
	return ffmpeg.KwArgs{
		"c:v":     codec,
		"pix_fmt": "yuv420p",
		"r":       o.FPS,
	}
}

// Recorder renders the scripted programs without a swap chain and encodes
// the image pass's output into a video file.
type Recorder struct {
	app  *vulkanapp.App
	rend *renderer.Renderer
	opts Options

	convert *images.Image
	staging *images.Buffer
}

// New prepares the readback resources: an 8-bit image the float targets are
// blitted through, and a host-visible buffer the frames are copied into.
func New(app *vulkanapp.App, rend *renderer.Renderer, opts Options) (*Recorder, error) {
	if opts.FPS <= 0 || opts.Duration <= 0 {
		return nil, fmt.Errorf("recording needs a positive rate and duration")
	}

	convert, err := images.NewImage(app.Device(), app.MemProps(), images.ImageOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
	})
	if err != nil {
		return nil, err
	}

	staging, err := images.NewBuffer(app.Device(), app.MemProps(),
		vk.DeviceSize(opts.frameSize()),
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), true)
	if err != nil {
		convert.Destroy(app.Device())
		return nil, err
	}

	return &Recorder{
		app:     app,
		rend:    rend,
		opts:    opts,
		convert: convert,
		staging: staging,
	}, nil
}

// Run renders FrameCount frames, reading each one back and piping it to the
// encoder. The encoder runs concurrently; Run returns its error if it fails.
func (r *Recorder) Run() error {
	pr, pw := io.Pipe()

	encodeDone := make(chan error, 1)
	go func() {
		encodeDone <- ffmpeg.Input("pipe:", r.opts.inputArgs()).
			Output(r.opts.Output, r.opts.outputArgs()).
			OverWriteOutput().
			WithInput(pr).
			Run()
	}()

	frameCount := r.opts.FrameCount()
	step := 1.0 / float64(r.opts.FPS)
	frame := make([]byte, r.opts.frameSize())
	uploader := r.app.Uploader()

	log.Printf("Recording %d frames at %dx%d to %s",
		frameCount, r.opts.Width, r.opts.Height, r.opts.Output)

	for i := 0; i < frameCount; i++ {
		var renderErr error
		err := uploader.Run(func(cmd vk.CommandBuffer) {
			var slot *images.Image
			slot, renderErr = r.rend.RenderOffscreen(cmd, r.opts.Width, r.opts.Height)
			if renderErr != nil {
				return
			}
			r.readback(cmd, slot)
		})
		if renderErr != nil {
			pw.CloseWithError(renderErr)
			<-encodeDone
			return renderErr
		}
		if err != nil {
			pw.CloseWithError(err)
			<-encodeDone
			return err
		}

		r.staging.Read(frame)
		if _, err := pw.Write(frame); err != nil {
			break
		}

		r.rend.Advance(step)
	}

	pw.Close()
	return <-encodeDone
}

// readback converts the float render target to 8-bit and copies it into the
// staging buffer. The slot returns to the readable state for the next frame.
func (r *Recorder) readback(cmd vk.CommandBuffer, slot *images.Image) {
	slot.Transition(cmd, images.StateTransferSrc)
	r.convert.Transition(cmd, images.StateTransferDst)

	extent := vk.Offset3D{
		X: int32(r.opts.Width),
		Y: int32(r.opts.Height),
		Z: 1,
	}
	layers := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	vk.CmdBlitImage(cmd,
		slot.Image, vk.ImageLayoutTransferSrcOptimal,
		r.convert.Image, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{{
			SrcSubresource: layers,
			SrcOffsets:     [2]vk.Offset3D{{}, extent},
			DstSubresource: layers,
			DstOffsets:     [2]vk.Offset3D{{}, extent},
		}}, vk.FilterNearest)

	slot.Transition(cmd, images.StateShaderResource)
	r.convert.Transition(cmd, images.StateTransferSrc)

	vk.CmdCopyImageToBuffer(cmd, r.convert.Image, vk.ImageLayoutTransferSrcOptimal,
		r.staging.Buffer, 1, []vk.BufferImageCopy{{
			ImageSubresource: layers,
			ImageExtent: vk.Extent3D{
				Width:  r.opts.Width,
				Height: r.opts.Height,
				Depth:  1,
			},
		}})
}

// Destroy releases the readback resources.
func (r *Recorder) Destroy() {
	dev := r.app.Device()
	r.convert.Destroy(dev)
	r.staging.Destroy(dev)
}
