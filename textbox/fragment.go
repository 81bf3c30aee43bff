package textbox

import (
	"strings"

	"github.com/ByLCY/folio/markup"
)

const (
	zeroWidthSpace      = "\u200b"
	superscriptRaise    = 0.85
	underlineOffset     = 1.25
	strikethroughRaise  = 0.3
	decorationLineWidth = 1.0
)

// Fragment 是某一行上定稿后的一段文本。
// 宽度与纵向度量在定稿时计算一次，Left 与 Baseline 在定位时赋值。
type Fragment struct {
	Run              markup.Run
	Face             Face
	Color            markup.Color
	CharacterSpacing float64
	Direction        Direction
	WordSpacing      float64

	LineHeight float64
	Ascender   float64
	Descender  float64

	Left     float64
	Baseline float64

	raw             string
	text            string
	width           float64
	excludeTrailing bool
}

func newFragment(run markup.Run, excludeTrailing bool) *Fragment {
	f := &Fragment{Run: run, raw: run.Text, excludeTrailing: excludeTrailing}
	f.text = f.process(f.raw)
	return f
}

func (f *Fragment) process(s string) string {
	s = strings.ReplaceAll(s, zeroWidthSpace, "")
	if f.excludeTrailing {
		s = strings.TrimRightFunc(s, isBreakingSpace)
	}
	return s
}

// Text 返回参与排版的文本（已去除被排除的行尾空白）。
func (f *Fragment) Text() string { return f.text }

// DrawnText 返回实际绘制的文本，RTL 时字符顺序反转。
func (f *Fragment) DrawnText() string {
	if f.Direction != RTL {
		return f.text
	}
	rs := []rune(f.text)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}

// IncludeTrailingWhitespace 撤销行尾空白的排除，用于重新入队。
func (f *Fragment) IncludeTrailingWhitespace() {
	f.excludeTrailing = false
	f.text = f.process(f.raw)
}

func (f *Fragment) ExcludesTrailingWhitespace() bool { return f.excludeTrailing }

func (f *Fragment) IsBreak() bool { return f.raw == "\n" }

// SpaceCount 统计 U+0020 的个数，对齐时在这些位置分配字距。
func (f *Fragment) SpaceCount() int { return strings.Count(f.text, " ") }

func (f *Fragment) Width() float64 {
	if f.WordSpacing == 0 {
		return f.width
	}
	return f.width + f.WordSpacing*float64(f.SpaceCount())
}

func (f *Fragment) Height() float64 { return f.Top() - f.Bottom() }

func (f *Fragment) Right() float64  { return f.Left + f.Width() }
func (f *Fragment) Top() float64    { return f.Baseline + f.Ascender }
func (f *Fragment) Bottom() float64 { return f.Baseline - f.Descender }

// YOffset 是上标/下标相对基线的偏移，只影响定位，不影响行度量。
func (f *Fragment) YOffset() float64 {
	switch {
	case f.Run.Styles.Has(markup.Subscript):
		return -f.Descender
	case f.Run.Styles.Has(markup.Superscript):
		return superscriptRaise * f.Ascender
	default:
		return 0
	}
}

func (f *Fragment) BoundingBox() Rect {
	return Rect{Left: f.Left, Bottom: f.Bottom(), Right: f.Right(), Top: f.Top()}
}

func (f *Fragment) UnderlinePoints() (Point, Point) {
	y := f.Baseline - underlineOffset
	return Point{X: f.Left, Y: y}, Point{X: f.Right(), Y: y}
}

func (f *Fragment) StrikethroughPoints() (Point, Point) {
	y := f.Baseline + strikethroughRaise*f.Ascender
	return Point{X: f.Left, Y: y}, Point{X: f.Right(), Y: y}
}

// unconsumed 把片段还原为 Run，保留原始文本。
func (f *Fragment) unconsumed() markup.Run {
	return f.Run.WithText(f.raw)
}
