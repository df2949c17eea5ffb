package annotate

import (
	"image"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"snapdesk/internal/framebuffer"
)

// bitmapFontSize 使用 basicfont.Face7x13, 其他字号用 Go Regular
const bitmapFontSize = 13

var (
	faceMu    sync.Mutex
	faceCache = map[int]font.Face{}
	goRegular *opentype.Font
)

// fontFace 返回缓存的字体, 矢量字体加载失败时退回位图字体
func fontFace(size int) font.Face {
	if size <= 0 || size == bitmapFontSize {
		return basicfont.Face7x13
	}

	faceMu.Lock()
	defer faceMu.Unlock()

	if f, ok := faceCache[size]; ok {
		return f
	}
	if goRegular == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return basicfont.Face7x13
		}
		goRegular = f
	}
	face, err := opentype.NewFace(goRegular, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	faceCache[size] = face
	return face
}

// textLayout 用 face 绘制多行文字的尺寸
type textLayout struct {
	lines      []string
	width      int
	lineHeight int
	ascent     int
}

func (l textLayout) size() image.Point {
	return image.Pt(l.width, l.lineHeight*len(l.lines))
}

func layoutText(face font.Face, text string) textLayout {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	m := face.Metrics()
	l := textLayout{
		lines:      lines,
		lineHeight: m.Height.Ceil(),
		ascent:     m.Ascent.Ceil(),
	}
	for _, line := range lines {
		l.width = max(l.width, font.MeasureString(face, line).Ceil())
	}
	return l
}

// anchorText 移动左上角 at, 让 size 大小的文字留在 bounds 内: 先左移/上移, 再截到 0
func anchorText(at image.Point, size image.Point, bounds image.Rectangle) image.Point {
	if at.X+size.X > bounds.Max.X {
		at.X = bounds.Max.X - size.X
	}
	if at.Y+size.Y > bounds.Max.Y {
		at.Y = bounds.Max.Y - size.Y
	}
	at.X = max(at.X, bounds.Min.X)
	at.Y = max(at.Y, bounds.Min.Y)
	return at
}

// renderText 以 at 为左上角绘制文字, 返回调整后占用的矩形
func renderText(fb *framebuffer.FrameBuffer, at image.Point, text string, p Params) image.Rectangle {
	face := fontFace(p.FontSize)
	l := layoutText(face, text)
	at = anchorText(at, l.size(), fb.Rect())

	d := &font.Drawer{
		Dst:  fb,
		Src:  image.NewUniform(p.Color),
		Face: face,
	}
	for i, line := range l.lines {
		d.Dot = fixed.P(at.X, at.Y+l.ascent+i*l.lineHeight)
		d.DrawString(line)
	}
	return image.Rectangle{Min: at, Max: at.Add(l.size())}.Intersect(fb.Rect())
}
