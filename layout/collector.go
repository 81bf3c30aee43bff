package layout

import (
	"slices"

	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/textbox"
)

type pageAccumulator struct {
	width   float64
	height  float64
	margin  Margin
	texts   []TextRun
	lines   []Line
	rects   []Rect
	circles []Circle
	links   []Link
	blocks  []BlockLog
}

// pageCollector 收集绘制结果并在自由流排版中充当分页协作者。
// 字体度量转发给 Typesetter 提供的实现。
type pageCollector struct {
	textbox.FontMetrics

	width    float64
	height   float64
	margin   Margin
	defaults textbox.Defaults

	accs      []*pageAccumulator
	current   int
	cursor    float64
	rotations []Rotation
}

var _ textbox.Pager = (*pageCollector)(nil)

func newPageCollector(metrics textbox.FontMetrics) *pageCollector {
	return &pageCollector{FontMetrics: metrics}
}

// startPage 以新的尺寸与边距开始一页，光标回到内容区顶部。
func (pc *pageCollector) startPage(width, height float64, margin Margin) {
	pc.width, pc.height, pc.margin = width, height, margin
	pc.newPage()
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{width: pc.width, height: pc.height, margin: pc.margin}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	pc.cursor = pc.contentTop()
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) contentTop() float64    { return pc.height - pc.margin.Top }
func (pc *pageCollector) contentBottom() float64 { return pc.margin.Bottom }

// contentRect 为页边距以内的区域。
func (pc *pageCollector) contentRect() textbox.Rect {
	return textbox.Rect{
		Left:   pc.margin.Left,
		Bottom: pc.contentBottom(),
		Right:  pc.width - pc.margin.Right,
		Top:    pc.contentTop(),
	}
}

func (pc *pageCollector) transform() []Rotation {
	if len(pc.rotations) == 0 {
		return nil
	}
	return slices.Clone(pc.rotations)
}

func (pc *pageCollector) DrawText(d textbox.TextDraw) error {
	acc := pc.curr()
	acc.texts = append(acc.texts, TextRun{
		Text:             d.Text,
		X:                d.At.X,
		Y:                d.At.Y,
		Font:             d.Face.Font,
		Size:             d.Face.Size,
		Bold:             d.Face.Bold,
		Italic:           d.Face.Italic,
		Color:            d.Color,
		CharacterSpacing: d.CharacterSpacing,
		WordSpacing:      d.WordSpacing,
		Kerning:          d.Kerning,
		Transform:        pc.transform(),
	})
	return nil
}

func (pc *pageCollector) StrokeLine(from, to textbox.Point, color markup.Color, width float64) error {
	acc := pc.curr()
	acc.lines = append(acc.lines, Line{
		X1: from.X, Y1: from.Y, X2: to.X, Y2: to.Y,
		Color:     color,
		Width:     width,
		Transform: pc.transform(),
	})
	return nil
}

func (pc *pageCollector) Annotate(area textbox.Rect, a textbox.Annotation) error {
	acc := pc.curr()
	acc.links = append(acc.links, Link{Area: area, Kind: a.Kind, Target: a.Target, Transform: pc.transform()})
	return nil
}

func (pc *pageCollector) Rotate(angle float64, origin textbox.Point) {
	pc.rotations = append(pc.rotations, Rotation{Angle: angle, Origin: origin})
}

func (pc *pageCollector) Restore() {
	if n := len(pc.rotations); n > 0 {
		pc.rotations = pc.rotations[:n-1]
	}
}

// Defaults 返回文档默认值，Bounds 为当前页的内容区。
func (pc *pageCollector) Defaults() textbox.Defaults {
	d := pc.defaults
	d.Bounds = pc.contentRect()
	return d
}

func (pc *pageCollector) Region() textbox.Region {
	r := pc.contentRect()
	return textbox.Region{Left: r.Left, Bottom: r.Bottom, Width: r.Width(), Cursor: pc.cursor}
}

func (pc *pageCollector) MoveCursor(dy float64) { pc.cursor -= dy }

// NextRegion 开始一页同尺寸的新页。
func (pc *pageCollector) NextRegion() error {
	pc.newPage()
	return nil
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:   acc.width,
			Height:  acc.height,
			Margin:  acc.margin,
			Texts:   acc.texts,
			Lines:   acc.lines,
			Rects:   acc.rects,
			Circles: acc.circles,
			Links:   acc.links,
			Blocks:  acc.blocks,
		}
	}
	return out
}
