package layout

import (
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/textbox"
)

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有长度均为 pt，坐标为 PDF 用户空间（原点在页面左下角，y 轴向上）。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
	// Overflow 记录固定文本框放不下、且没有后续 continue 文本框承接的文本。
	Overflow []Overflow `json:"overflow,omitempty"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]markup.Color `json:"colors"`
	Styles map[string]Style        `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径或 builtin:* 形式。
// Bold/Italic/BoldItalic 为同一字体族的变体来源，缺省时回落到 Src。
type FontResource struct {
	Name       string `json:"name"`
	Src        string `json:"src"`
	Bold       string `json:"bold,omitempty"`
	Italic     string `json:"italic,omitempty"`
	BoldItalic string `json:"boldItalic,omitempty"`
	// Family 为空表示字体没有字体族信息，不能使用粗体/斜体。
	Family string `json:"family,omitempty"`
}

// Variant 返回给定样式对应的字体来源。
func (f FontResource) Variant(bold, italic bool) string {
	switch {
	case bold && italic && f.BoldItalic != "":
		return f.BoldItalic
	case bold && f.Bold != "":
		return f.Bold
	case italic && f.Italic != "":
		return f.Italic
	default:
		return f.Src
	}
}

// Page 记录页面尺寸、边距与最终可以直接渲染的元素，按绘制顺序排列。
type Page struct {
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Margin  Margin     `json:"margin"`
	Texts   []TextRun  `json:"texts"`
	Lines   []Line     `json:"lines,omitempty"`
	Rects   []Rect     `json:"rects,omitempty"`
	Circles []Circle   `json:"circles,omitempty"`
	Links   []Link     `json:"links,omitempty"`
	Blocks  []BlockLog `json:"blocks,omitempty"`
}

// Margin 以 pt 为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Rotation 是绘制时生效的一层旋转（逆时针角度，绕 Origin）。
type Rotation struct {
	Angle  float64       `json:"angle"`
	Origin textbox.Point `json:"origin"`
}

// TextRun 是一次定位好的文本绘制，X/Y 为基线起点。
type TextRun struct {
	Text             string       `json:"text"`
	X                float64      `json:"x"`
	Y                float64      `json:"y"`
	Font             string       `json:"font"`
	Size             float64      `json:"size"`
	Bold             bool         `json:"bold,omitempty"`
	Italic           bool         `json:"italic,omitempty"`
	Color            markup.Color `json:"color"`
	CharacterSpacing float64      `json:"characterSpacing,omitempty"`
	WordSpacing      float64      `json:"wordSpacing,omitempty"`
	Kerning          bool         `json:"kerning,omitempty"`
	// Transform 由外向内排列。
	Transform []Rotation `json:"transform,omitempty"`
}

// Line 为直线段，Width 为线宽。
type Line struct {
	X1        float64      `json:"x1"`
	Y1        float64      `json:"y1"`
	X2        float64      `json:"x2"`
	Y2        float64      `json:"y2"`
	Color     markup.Color `json:"color"`
	Width     float64      `json:"width"`
	Transform []Rotation   `json:"transform,omitempty"`
}

// Rect 的 X/Y 为左下角。
type Rect struct {
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
	StrokeColor markup.Color  `json:"strokeColor"`
	StrokeWidth float64       `json:"strokeWidth"`
	FillColor   *markup.Color `json:"fillColor,omitempty"`
}

type Circle struct {
	CX          float64       `json:"cx"`
	CY          float64       `json:"cy"`
	R           float64       `json:"r"`
	StrokeColor markup.Color  `json:"strokeColor"`
	StrokeWidth float64       `json:"strokeWidth"`
	FillColor   *markup.Color `json:"fillColor,omitempty"`
}

// Link 是链接、命名锚点或本地文件链接注释。
type Link struct {
	Area      textbox.Rect           `json:"area"`
	Kind      textbox.AnnotationKind `json:"kind"`
	Target    string                 `json:"target"`
	Transform []Rotation             `json:"transform,omitempty"`
}

// BlockLog 记录一个 text/box 命令的排版摘要，仅在 DebugOptions.Blocks 开启时输出。
type BlockLog struct {
	Kind     string       `json:"kind"`
	Line     int          `json:"line"`
	Frame    textbox.Rect `json:"frame"`
	Printed  string       `json:"printed"`
	Leftover string       `json:"leftover,omitempty"`
	FontSize float64      `json:"fontSize"`
}

// Overflow 为丢弃的剩余文本，Text 为序列化后的标记文本。
type Overflow struct {
	Page int    `json:"page"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Style 为可复用的属性集合，Extends 指向父样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 写入 PDF 信息字典。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
