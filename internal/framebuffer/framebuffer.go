package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Format FrameBuffer 的像素布局
type Format int

const (
	RGB24  Format = iota // 每像素 3 字节, R G B
	RGBA32               // 每像素 4 字节, 与 image.RGBA 一样预乘
)

// BytesPerPixel 单个像素占用的字节数
func (f Format) BytesPerPixel() int {
	if f == RGB24 {
		return 3
	}
	return 4
}

func (f Format) String() string {
	switch f {
	case RGB24:
		return "RGB24"
	case RGBA32:
		return "RGBA32"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

var (
	ErrInvalidDimensions = errors.New("framebuffer: invalid dimensions")
	ErrEmptyRegion       = errors.New("framebuffer: empty region")
)

// FrameBuffer 独占的连续行优先栅格. 原点总是 (0,0), 屏幕坐标由调用方换算
type FrameBuffer struct {
	Pix    []byte
	Width  int
	Height int
	Format Format
}

// New 返回全零缓冲
func New(width, height int, format Format) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &FrameBuffer{
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
		Width:  width,
		Height: height,
		Format: format,
	}, nil
}

// Stride 每行字节数
func (fb *FrameBuffer) Stride() int { return fb.Width * fb.Format.BytesPerPixel() }

// Rect 整个画布矩形
func (fb *FrameBuffer) Rect() image.Rectangle { return image.Rect(0, 0, fb.Width, fb.Height) }

// Copy 深拷贝
func (fb *FrameBuffer) Copy() *FrameBuffer {
	pix := make([]byte, len(fb.Pix))
	copy(pix, fb.Pix)
	return &FrameBuffer{Pix: pix, Width: fb.Width, Height: fb.Height, Format: fb.Format}
}

// Crop 返回 r 截到画布内后的像素副本
func (fb *FrameBuffer) Crop(r image.Rectangle) (*FrameBuffer, error) {
	r = r.Canon().Intersect(fb.Rect())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}

	out, err := New(r.Dx(), r.Dy(), fb.Format)
	if err != nil {
		return nil, err
	}

	bpp := fb.Format.BytesPerPixel()
	srcStride := fb.Stride()
	dstStride := out.Stride()
	rowBytes := r.Dx() * bpp
	for y := 0; y < r.Dy(); y++ {
		srcStart := (r.Min.Y+y)*srcStride + r.Min.X*bpp
		dstStart := y * dstStride
		copy(out.Pix[dstStart:dstStart+rowBytes], fb.Pix[srcStart:srcStart+rowBytes])
	}
	return out, nil
}

// Blit 把 src 的 srcRect 复制到 fb 的 dst. 两个矩形各自截到自己的缓冲内,
// 按较小的一方截断, 部分超出画布时只写能放下的部分.
func (fb *FrameBuffer) Blit(dst image.Rectangle, src *FrameBuffer, srcRect image.Rectangle) {
	if src == nil {
		return
	}
	dst = dst.Canon()
	srcRect = srcRect.Canon()

	// 两边原点一起平移, 截一边时另一边同步移动
	if dst.Min.X < 0 {
		srcRect.Min.X -= dst.Min.X
		dst.Min.X = 0
	}
	if dst.Min.Y < 0 {
		srcRect.Min.Y -= dst.Min.Y
		dst.Min.Y = 0
	}
	if srcRect.Min.X < 0 {
		dst.Min.X -= srcRect.Min.X
		srcRect.Min.X = 0
	}
	if srcRect.Min.Y < 0 {
		dst.Min.Y -= srcRect.Min.Y
		srcRect.Min.Y = 0
	}
	dst = dst.Intersect(fb.Rect())
	srcRect = srcRect.Intersect(src.Rect())

	w := min(dst.Dx(), srcRect.Dx())
	h := min(dst.Dy(), srcRect.Dy())
	if w <= 0 || h <= 0 {
		return
	}

	if fb.Format == src.Format {
		bpp := fb.Format.BytesPerPixel()
		rowBytes := w * bpp
		for y := 0; y < h; y++ {
			d := (dst.Min.Y+y)*fb.Stride() + dst.Min.X*bpp
			s := (srcRect.Min.Y+y)*src.Stride() + srcRect.Min.X*bpp
			copy(fb.Pix[d:d+rowBytes], src.Pix[s:s+rowBytes])
		}
		return
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fb.SetRGBA(dst.Min.X+x, dst.Min.Y+y, src.RGBAAt(srcRect.Min.X+x, srcRect.Min.Y+y))
		}
	}
}

// Pixelate 把从原点对齐的每个 block x block 单元替换为该单元的平均色.
// 右边和下边的单元可以不足一块. block <= 1 时不做处理
func (fb *FrameBuffer) Pixelate(block int) {
	if block <= 1 {
		return
	}
	for y0 := 0; y0 < fb.Height; y0 += block {
		for x0 := 0; x0 < fb.Width; x0 += block {
			cell := image.Rect(x0, y0, x0+block, y0+block).Intersect(fb.Rect())
			xdraw.Draw(fb, cell, image.NewUniform(fb.average(cell)), image.Point{}, draw.Src)
		}
	}
}

// average 计算 r 内像素的平均色, 四舍五入
func (fb *FrameBuffer) average(r image.Rectangle) color.RGBA {
	var sr, sg, sb, sa, n int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := fb.RGBAAt(x, y)
			sr += int(c.R)
			sg += int(c.G)
			sb += int(c.B)
			sa += int(c.A)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{}
	}
	return color.RGBA{
		uint8((sr + n/2) / n),
		uint8((sg + n/2) / n),
		uint8((sb + n/2) / n),
		uint8((sa + n/2) / n),
	}
}

// Fill 用 c 填充所有像素
func (fb *FrameBuffer) Fill(c color.RGBA) {
	bpp := fb.Format.BytesPerPixel()
	for off := 0; off < len(fb.Pix); off += bpp {
		fb.Pix[off+0] = c.R
		fb.Pix[off+1] = c.G
		fb.Pix[off+2] = c.B
		if bpp == 4 {
			fb.Pix[off+3] = c.A
		}
	}
}

// Equal 像素完全一致 (尺寸, 格式和字节都相同)
func (fb *FrameBuffer) Equal(other *FrameBuffer) bool {
	if fb == nil || other == nil {
		return fb == other
	}
	if fb.Width != other.Width || fb.Height != other.Height || fb.Format != other.Format {
		return false
	}
	for i := range fb.Pix {
		if fb.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

func (fb *FrameBuffer) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < fb.Width && y < fb.Height
}

func (fb *FrameBuffer) offset(x, y int) int {
	return y*fb.Stride() + x*fb.Format.BytesPerPixel()
}

// RGBAAt 返回 (x, y) 的像素, 越界返回透明黑
func (fb *FrameBuffer) RGBAAt(x, y int) color.RGBA {
	if !fb.inBounds(x, y) {
		return color.RGBA{}
	}
	off := fb.offset(x, y)
	if fb.Format == RGB24 {
		return color.RGBA{fb.Pix[off], fb.Pix[off+1], fb.Pix[off+2], 255}
	}
	return color.RGBA{fb.Pix[off], fb.Pix[off+1], fb.Pix[off+2], fb.Pix[off+3]}
}

// SetRGBA 在 (x, y) 写入 c, 越界忽略
func (fb *FrameBuffer) SetRGBA(x, y int, c color.RGBA) {
	if !fb.inBounds(x, y) {
		return
	}
	off := fb.offset(x, y)
	fb.Pix[off+0] = c.R
	fb.Pix[off+1] = c.G
	fb.Pix[off+2] = c.B
	if fb.Format == RGBA32 {
		fb.Pix[off+3] = c.A
	}
}

// Blend 把非预乘颜色混合到 (x, y)
func (fb *FrameBuffer) Blend(x, y int, c color.RGBA) {
	if !fb.inBounds(x, y) || c.A == 0 {
		return
	}
	if c.A == 255 {
		fb.SetRGBA(x, y, c)
		return
	}
	off := fb.offset(x, y)
	srcA := uint32(c.A)
	invA := 255 - srcA
	fb.Pix[off+0] = uint8((uint32(c.R)*srcA + uint32(fb.Pix[off+0])*invA) / 255)
	fb.Pix[off+1] = uint8((uint32(c.G)*srcA + uint32(fb.Pix[off+1])*invA) / 255)
	fb.Pix[off+2] = uint8((uint32(c.B)*srcA + uint32(fb.Pix[off+2])*invA) / 255)
	if fb.Format == RGBA32 {
		fb.Pix[off+3] = uint8(srcA + uint32(fb.Pix[off+3])*invA/255)
	}
}

// ColorModel 实现 image.Image
func (fb *FrameBuffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds 实现 image.Image
func (fb *FrameBuffer) Bounds() image.Rectangle { return fb.Rect() }

// At 实现 image.Image
func (fb *FrameBuffer) At(x, y int) color.Color { return fb.RGBAAt(x, y) }

// Set 实现 draw.Image
func (fb *FrameBuffer) Set(x, y int, c color.Color) {
	fb.SetRGBA(x, y, color.RGBAModel.Convert(c).(color.RGBA))
}

// RGBA 返回新分配的 *image.RGBA 副本
func (fb *FrameBuffer) RGBA() *image.RGBA {
	img := image.NewRGBA(fb.Rect())
	if fb.Format == RGBA32 {
		copy(img.Pix, fb.Pix)
		return img
	}
	for i, j := 0, 0; i < len(fb.Pix); i, j = i+3, j+4 {
		img.Pix[j+0] = fb.Pix[i+0]
		img.Pix[j+1] = fb.Pix[i+1]
		img.Pix[j+2] = fb.Pix[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

// FromImage 把 img 复制到新缓冲, 原点为 img.Bounds().Min
func FromImage(img image.Image, format Format) (*FrameBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	b := img.Bounds()
	fb, err := New(b.Dx(), b.Dy(), format)
	if err != nil {
		return nil, err
	}

	if rgba, ok := img.(*image.RGBA); ok && format == RGBA32 {
		rowBytes := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			s := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			copy(fb.Pix[y*rowBytes:(y+1)*rowBytes], rgba.Pix[s:s+rowBytes])
		}
		return fb, nil
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			fb.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return fb, nil
}
