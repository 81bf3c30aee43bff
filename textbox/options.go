package textbox

import "github.com/ByLCY/folio/markup"

type Align string

const (
	AlignLeft    Align = "left"
	AlignCenter  Align = "center"
	AlignRight   Align = "right"
	AlignJustify Align = "justify"
)

type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignCenter VAlign = "center"
	VAlignBottom VAlign = "bottom"
)

// Overflow 决定文本超出高度时的处理方式。
type Overflow string

const (
	OverflowTruncate    Overflow = "truncate"
	OverflowExpand      Overflow = "expand"
	OverflowShrinkToFit Overflow = "shrink_to_fit"
)

// Pivot 是旋转中心。
type Pivot string

const (
	PivotUpperLeft  Pivot = "upper_left"
	PivotUpperRight Pivot = "upper_right"
	PivotLowerRight Pivot = "lower_right"
	PivotLowerLeft  Pivot = "lower_left"
	PivotCenter     Pivot = "center"
)

type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

const (
	defaultMinFontSize = 5.0
	shrinkStep         = 0.5
)

// Options 配置一个文本框。零值字段沿用 Document.Defaults()。
type Options struct {
	// At 是文本框左上角；为 nil 时取 Bounds 的左上角。
	At *Point
	// Width/Height 为 0 时分别延伸到 Bounds 的右边与底边。
	Width  float64
	Height float64

	Align        Align
	VAlign       VAlign
	Overflow     Overflow
	MinFontSize  float64
	Rotate       float64
	RotateAround Pivot
	Direction    Direction

	FallbackFonts     []string
	SingleLine        bool
	DisableWrapByChar bool

	Font             string
	Size             float64
	Color            *markup.Color
	Leading          *float64
	Kerning          *bool
	CharacterSpacing *float64
	Bounds           *Rect

	// DrawText 不为 nil 时替代 Canvas.DrawText。
	DrawText func(c Canvas, d TextDraw) error
}

// BehindRenderer 在片段绘制之前被调用，可放在 markup.Run.Callbacks 中。
type BehindRenderer interface {
	RenderBehind(c Canvas, f *Fragment) error
}

// InFrontRenderer 在片段（含下划线与注释）绘制之后被调用。
type InFrontRenderer interface {
	RenderInFront(c Canvas, f *Fragment) error
}

// Float 与 Bool 便于填写指针类型的选项。
func Float(v float64) *float64 { return &v }

func Bool(v bool) *bool { return &v }
