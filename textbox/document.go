package textbox

import "github.com/ByLCY/folio/markup"

// Point 是 PDF 用户空间中的坐标（pt，原点在左下，y 轴向上）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 是轴对齐矩形。
type Rect struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Face 描述一次测量或绘制所用的字体。
type Face struct {
	Font   string  `json:"font"`
	Size   float64 `json:"size"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
}

// Metrics 为某个字号下的纵向度量，Descender 取正值。
type Metrics struct {
	Ascender  float64
	Descender float64
	LineGap   float64
}

// Height 返回行高：上升 + 下降 + 行间隙。
func (m Metrics) Height() float64 { return m.Ascender + m.Descender + m.LineGap }

// FontMetrics 是排版引擎所需的字体度量服务。
type FontMetrics interface {
	// Width 返回文本在给定字体下的宽度（不含字间距）。
	Width(face Face, text string, kerning bool) (float64, error)
	VerticalMetrics(face Face) (Metrics, error)
	HasGlyph(font string, r rune) bool
	// Normalize 把文本转换为字体可编码的形式，失败时返回 *IncompatibleEncodingError。
	Normalize(face Face, text string) (string, error)
	// Family 返回字体所属字体族；没有粗体/斜体变体时返回 false。
	Family(font string) (string, bool)
}

// TextDraw 是一次文本绘制请求。
type TextDraw struct {
	Text             string
	At               Point
	Face             Face
	Color            markup.Color
	CharacterSpacing float64
	WordSpacing      float64
	Kerning          bool
}

// AnnotationKind 区分链接注释的目标类型。
type AnnotationKind string

const (
	AnnotationLink   AnnotationKind = "link"
	AnnotationAnchor AnnotationKind = "anchor"
	AnnotationLocal  AnnotationKind = "local"
)

type Annotation struct {
	Kind   AnnotationKind `json:"kind"`
	Target string         `json:"target"`
}

// Defaults 是文档级默认值，调用方未指定对应选项时使用。
type Defaults struct {
	Font             string
	Size             float64
	Color            markup.Color
	Leading          float64
	Kerning          bool
	CharacterSpacing float64
	FallbackFonts    []string
	Direction        Direction
	// Bounds 是最近的非伸缩容器区域，决定默认宽高与 OverflowExpand 的高度。
	Bounds Rect
}

// Canvas 是排版结果的输出端。
type Canvas interface {
	DrawText(d TextDraw) error
	StrokeLine(from, to Point, color markup.Color, width float64) error
	Annotate(area Rect, a Annotation) error
	// Rotate 以 origin 为中心逆时针旋转 angle 度，直到对应的 Restore。
	Rotate(angle float64, origin Point)
	Restore()
	Defaults() Defaults
}

// Document 同时提供度量与绘制。
type Document interface {
	FontMetrics
	Canvas
}

// Region 描述分页协作者当前可用的矩形区域；Cursor 为剩余空间顶端的 y。
type Region struct {
	Left   float64
	Bottom float64
	Width  float64
	Cursor float64
}

// Pager 在自由流排版中提供区域与换页。
type Pager interface {
	Document
	Region() Region
	// MoveCursor 把光标下移 dy。
	MoveCursor(dy float64)
	// NextRegion 开始新的区域（通常是新的一页）。
	NextRegion() error
}

// withRotation 在旋转坐标系内执行 fn，任何返回路径都会恢复。
func withRotation(c Canvas, angle float64, origin Point, fn func() error) error {
	c.Rotate(angle, origin)
	defer c.Restore()
	return fn()
}
