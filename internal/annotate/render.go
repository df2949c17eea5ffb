package annotate

import (
	"image"
	"image/color"
	"math"

	"snapdesk/internal/framebuffer"
)

// renderStroke 把手势栅格化到 fb
func renderStroke(fb *framebuffer.FrameBuffer, s *Stroke) {
	switch s.Tool {
	case ToolPen:
		renderPen(fb, s)
	case ToolArrow:
		renderArrow(fb, s)
	case ToolRect:
		renderRect(fb, s)
	case ToolEllipse:
		renderEllipse(fb, s)
	case ToolMosaic:
		renderMosaic(fb, s)
	}
}

// visible 提交 s 是否会改变画面
func visible(s *Stroke) bool {
	switch s.Tool {
	case ToolPen:
		return len(s.Points) > 0
	case ToolMosaic:
		return len(s.Points) > 0
	default:
		return len(s.Points) >= 2 && s.Points[0] != s.Points[len(s.Points)-1]
	}
}

// ---------- 画笔 ----------

func renderPen(fb *framebuffer.FrameBuffer, s *Stroke) {
	if len(s.Points) == 1 {
		p := s.Points[0]
		drawFilledCircleAA(fb, float64(p.X), float64(p.Y), lineHalfWidth(s.Params.Width), s.Params.Color)
		return
	}
	for i := 1; i < len(s.Points); i++ {
		p0, p1 := s.Points[i-1], s.Points[i]
		drawThickLine(fb, p0.X, p0.Y, p1.X, p1.Y, s.Params.Color, s.Params.Width)
	}
}

// ---------- 箭头 ----------

// arrowWingAngle 相对箭杆反方向的夹角
const arrowWingAngle = math.Pi / 6

// ArrowHead 返回终点为 end 的箭头两翼端点. 翼长 4×width,
// 与箭杆反方向成 ±30°. 箭杆长度为 0 时 ok 为 false
func ArrowHead(start, end image.Point, width int) (left, right image.Point, ok bool) {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	if dx == 0 && dy == 0 {
		return image.Point{}, image.Point{}, false
	}
	back := math.Atan2(dy, dx) + math.Pi
	wing := float64(4 * max(width, 1))

	left = image.Point{
		X: end.X + int(math.Round(wing*math.Cos(back-arrowWingAngle))),
		Y: end.Y + int(math.Round(wing*math.Sin(back-arrowWingAngle))),
	}
	right = image.Point{
		X: end.X + int(math.Round(wing*math.Cos(back+arrowWingAngle))),
		Y: end.Y + int(math.Round(wing*math.Sin(back+arrowWingAngle))),
	}
	return left, right, true
}

func renderArrow(fb *framebuffer.FrameBuffer, s *Stroke) {
	if len(s.Points) < 2 {
		return
	}
	p0, p1 := s.Points[0], s.Points[len(s.Points)-1]
	drawThickLine(fb, p0.X, p0.Y, p1.X, p1.Y, s.Params.Color, s.Params.Width)

	left, right, ok := ArrowHead(p0, p1, s.Params.Width)
	if !ok {
		return
	}
	drawFilledTriangle(fb, p1, left, right, s.Params.Color)
}

// ---------- 矩形 ----------

func renderRect(fb *framebuffer.FrameBuffer, s *Stroke) {
	if len(s.Points) < 2 {
		return
	}
	r := image.Rectangle{Min: s.Points[0], Max: s.Points[len(s.Points)-1]}.Canon()

	if s.Params.Filled {
		fill := s.Params.Color
		fill.A = 80
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				fb.Blend(x, y, fill)
			}
		}
	}

	c, w := s.Params.Color, s.Params.Width
	drawThickLine(fb, r.Min.X, r.Min.Y, r.Max.X-1, r.Min.Y, c, w)
	drawThickLine(fb, r.Min.X, r.Max.Y-1, r.Max.X-1, r.Max.Y-1, c, w)
	drawThickLine(fb, r.Min.X, r.Min.Y, r.Min.X, r.Max.Y-1, c, w)
	drawThickLine(fb, r.Max.X-1, r.Min.Y, r.Max.X-1, r.Max.Y-1, c, w)
}

// ---------- 椭圆 ----------

func renderEllipse(fb *framebuffer.FrameBuffer, s *Stroke) {
	if len(s.Points) < 2 {
		return
	}
	r := image.Rectangle{Min: s.Points[0], Max: s.Points[len(s.Points)-1]}.Canon()
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	rx := float64(r.Dx()) / 2
	ry := float64(r.Dy()) / 2
	if rx < 1 || ry < 1 {
		return
	}

	halfW := lineHalfWidth(s.Params.Width)
	fill := s.Params.Color
	fill.A = 80
	margin := int(halfW) + 2

	for py := r.Min.Y - margin; py <= r.Max.Y+margin; py++ {
		for px := r.Min.X - margin; px <= r.Max.X+margin; px++ {
			dist, inside := ellipseDistance(float64(px)+0.5, float64(py)+0.5, cx, cy, rx, ry)
			if inside && s.Params.Filled {
				fb.Blend(px, py, fill)
			}
			renderAAPixel(fb, px, py, s.Params.Color, dist, halfW)
		}
	}
}

// ellipseDistance 近似 (px, py) 到椭圆边的距离: 归一化径向误差乘以局部半径
func ellipseDistance(px, py, cx, cy, rx, ry float64) (float64, bool) {
	dx, dy := px-cx, py-cy
	nx, ny := dx/rx, dy/ry
	k := math.Hypot(nx, ny)
	if k == 0 {
		return math.Min(rx, ry), true
	}
	// 该方向上的椭圆半径
	local := math.Hypot(dx, dy) / k
	return math.Abs(k-1) * local, k <= 1
}

// ---------- 马赛克 ----------

// renderMosaic 对手势围成的矩形打码, 分块从矩形左上角开始
func renderMosaic(fb *framebuffer.FrameBuffer, s *Stroke) {
	if len(s.Points) == 0 {
		return
	}
	p0, p1 := s.Points[0], s.Points[len(s.Points)-1]
	r := image.Rectangle{Min: p0, Max: p1}.Canon()
	pixelateRegion(fb, r, s.Params.Block)
}

// mosaicDab 以 c 为中心的 block×block 方块
func mosaicDab(c image.Point, block int) image.Rectangle {
	block = max(block, 1)
	tl := c.Sub(image.Pt(block/2, block/2))
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(block, block))}
}

// pixelateRegion 返回 fb 内是否有像素被处理
func pixelateRegion(fb *framebuffer.FrameBuffer, r image.Rectangle, block int) bool {
	r = r.Intersect(fb.Rect())
	if r.Empty() {
		return false
	}
	region, err := fb.Crop(r)
	if err != nil {
		return false
	}
	region.Pixelate(block)
	fb.Blit(r, region, region.Rect())
	return true
}

// ========== 基础图元 ==========

func lineHalfWidth(width int) float64 {
	return math.Max(float64(width)/2.0, 0.75)
}

// drawThickLine 用距离场画圆头线段
func drawThickLine(fb *framebuffer.FrameBuffer, x1, y1, x2, y2 int, c color.RGBA, width int) {
	halfW := lineHalfWidth(width)

	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := math.Hypot(dx, dy)

	if length < 0.5 {
		drawFilledCircleAA(fb, float64(x1), float64(y1), halfW, c)
		return
	}

	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux

	margin := int(halfW) + 2
	bx0, bx1 := min(x1, x2)-margin, max(x1, x2)+margin
	by0, by1 := min(y1, y2)-margin, max(y1, y2)+margin

	// 在画布外, 不用画
	if bx1 < 0 || by1 < 0 || bx0 >= fb.Width || by0 >= fb.Height {
		return
	}
	bx0, by0 = max(bx0, 0), max(by0, 0)
	bx1, by1 = min(bx1, fb.Width-1), min(by1, fb.Height-1)

	x1f, y1f := float64(x1), float64(y1)
	x2f, y2f := float64(x2), float64(y2)

	for py := by0; py <= by1; py++ {
		for px := bx0; px <= bx1; px++ {
			vx := float64(px) - x1f
			vy := float64(py) - y1f
			along := vx*ux + vy*uy

			var dist float64
			switch {
			case along <= 0:
				dist = math.Hypot(vx, vy)
			case along >= length:
				dist = math.Hypot(float64(px)-x2f, float64(py)-y2f)
			default:
				dist = math.Abs(vx*nx + vy*ny)
			}

			renderAAPixel(fb, px, py, c, dist, halfW)
		}
	}
}

// renderAAPixel 在半宽最后一个像素内淡出 c
func renderAAPixel(fb *framebuffer.FrameBuffer, x, y int, c color.RGBA, dist, halfW float64) {
	if dist > halfW+0.5 {
		return
	}
	if dist <= halfW-0.5 {
		fb.Blend(x, y, c)
		return
	}
	frac := halfW + 0.5 - dist
	fb.Blend(x, y, color.RGBA{c.R, c.G, c.B, uint8(float64(c.A) * frac)})
}

func drawFilledCircleAA(fb *framebuffer.FrameBuffer, cx, cy, r float64, c color.RGBA) {
	ri := int(r) + 2
	cxi, cyi := int(cx), int(cy)
	for py := cyi - ri; py <= cyi+ri; py++ {
		for px := cxi - ri; px <= cxi+ri; px++ {
			dist := math.Hypot(float64(px)-cx, float64(py)-cy)
			renderAAPixel(fb, px, py, c, dist, r)
		}
	}
}

// drawFilledTriangle 扫描线填充三角形, 顶点之间的每一行至少填充两条边交点之间的部分
func drawFilledTriangle(fb *framebuffer.FrameBuffer, p1, p2, p3 image.Point, c color.RGBA) {
	minY := max(min(p1.Y, p2.Y, p3.Y), 0)
	maxY := min(max(p1.Y, p2.Y, p3.Y), fb.Height-1)

	var xs []int
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		xs = appendEdgeX(xs, y, p1, p2)
		xs = appendEdgeX(xs, y, p2, p3)
		xs = appendEdgeX(xs, y, p3, p1)
		if len(xs) == 0 {
			continue
		}

		xMin, xMax := xs[0], xs[0]
		for _, x := range xs[1:] {
			xMin, xMax = min(xMin, x), max(xMax, x)
		}
		for x := xMin; x <= xMax; x++ {
			fb.Blend(x, y, c)
		}
	}
}

// appendEdgeX 追加第 y 行与边 (a, b) 的交点, 水平边两个端点都算
func appendEdgeX(xs []int, y int, a, b image.Point) []int {
	if a.Y > b.Y {
		a, b = b, a
	}
	if y < a.Y || y > b.Y {
		return xs
	}
	if a.Y == b.Y {
		return append(xs, a.X, b.X)
	}
	t := float64(y-a.Y) / float64(b.Y-a.Y)
	x := int(math.Round(float64(a.X) + t*float64(b.X-a.X)))
	return append(xs, x)
}
