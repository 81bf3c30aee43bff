package markup

import (
	"fmt"
	"strings"
)

// Style 是文本样式的位集合。
type Style uint8

const (
	Bold Style = 1 << iota
	Italic
	Underline
	Strikethrough
	Subscript
	Superscript
)

var styleNames = []struct {
	flag Style
	name string
}{
	{Bold, "bold"},
	{Italic, "italic"},
	{Underline, "underline"},
	{Strikethrough, "strikethrough"},
	{Subscript, "subscript"},
	{Superscript, "superscript"},
}

// Has 判断是否包含给定样式。
func (s Style) Has(flag Style) bool { return s&flag != 0 }

func (s Style) String() string {
	if s == 0 {
		return "normal"
	}
	parts := make([]string, 0, len(styleNames))
	for _, sn := range styleNames {
		if s.Has(sn.flag) {
			parts = append(parts, sn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Color 为 RGB（0-255）或 CMYK（0-100）颜色。
type Color struct {
	CMYK bool    `json:"cmyk,omitempty"`
	R    uint8   `json:"r"`
	G    uint8   `json:"g"`
	B    uint8   `json:"b"`
	C    float64 `json:"c,omitempty"`
	M    float64 `json:"m,omitempty"`
	Y    float64 `json:"y,omitempty"`
	K    float64 `json:"k,omitempty"`
}

// RGB 构造 RGB 颜色。
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// CMYK 构造 CMYK 颜色，分量取值 0-100。
func CMYK(c, m, y, k float64) Color { return Color{CMYK: true, C: c, M: m, Y: y, K: k} }

// Hex 返回 6 位十六进制 RGB 表示（CMYK 先换算为 RGB）。
func (c Color) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("%02x%02x%02x", uint8(r*255+0.5), uint8(g*255+0.5), uint8(b*255+0.5))
}

// RGB 返回 0-1 区间的 RGB 分量，供渲染器使用。
func (c Color) RGB() (float64, float64, float64) {
	if !c.CMYK {
		return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
	}
	k := 1 - clampPercent(c.K)
	return (1 - clampPercent(c.C)) * k, (1 - clampPercent(c.M)) * k, (1 - clampPercent(c.Y)) * k
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 1
	default:
		return v / 100
	}
}

// Run 是共享同一组样式的一段文本（styled run）。
// 换行单独成为一个 Run，其 Text 恰好为 "\n"。
type Run struct {
	Text             string   `json:"text"`
	Styles           Style    `json:"styles,omitempty"`
	Font             string   `json:"font,omitempty"`
	Size             float64  `json:"size,omitempty"` // 0 表示沿用文本框字号
	CharacterSpacing *float64 `json:"characterSpacing,omitempty"`
	Color            *Color   `json:"color,omitempty"`
	Link             string   `json:"link,omitempty"`
	Anchor           string   `json:"anchor,omitempty"`
	Local            string   `json:"local,omitempty"`
	// Callbacks 在绘制每个片段前后被调用，见 textbox 包的 BehindRenderer/InFrontRenderer。
	Callbacks []any `json:"-"`
}

// WithText 返回保留全部属性、仅替换文本的副本。
func (r Run) WithText(text string) Run {
	r.Text = text
	return r
}

// IsBreak 判断是否为硬换行。
func (r Run) IsBreak() bool { return r.Text == "\n" }

// SameFormat 判断两个 Run 的格式是否完全一致（忽略文本）。
// 带回调的 Run 永远不视为相同，避免合并后回调次数改变。
func (r Run) SameFormat(o Run) bool {
	if len(r.Callbacks) > 0 || len(o.Callbacks) > 0 {
		return false
	}
	if r.Styles != o.Styles || r.Font != o.Font || r.Size != o.Size {
		return false
	}
	if r.Link != o.Link || r.Anchor != o.Anchor || r.Local != o.Local {
		return false
	}
	if (r.CharacterSpacing == nil) != (o.CharacterSpacing == nil) {
		return false
	}
	if r.CharacterSpacing != nil && *r.CharacterSpacing != *o.CharacterSpacing {
		return false
	}
	if (r.Color == nil) != (o.Color == nil) {
		return false
	}
	return r.Color == nil || *r.Color == *o.Color
}

// Text 拼接所有 Run 的文本。
func Text(runs []Run) string {
	var builder strings.Builder
	for _, r := range runs {
		builder.WriteString(r.Text)
	}
	return builder.String()
}

// Clone 复制 Run 切片，使后续修改不影响调用方。
func Clone(runs []Run) []Run {
	if runs == nil {
		return nil
	}
	out := make([]Run, len(runs))
	copy(out, runs)
	return out
}

// ArrayParagraphs 按硬换行把 Run 序列切分为段落。
// 连续换行产生的空段落保留为仅含一个换行 Run 的段落。
func ArrayParagraphs(runs []Run) [][]Run {
	var paragraphs [][]Run
	var paragraph []Run
	previous := "\n"
	for _, r := range runs {
		for _, piece := range SplitBreaks(r.Text) {
			if piece == "\n" {
				if previous == "\n" {
					paragraph = append(paragraph, r.WithText("\n"))
				}
				if len(paragraph) > 0 {
					paragraphs = append(paragraphs, paragraph)
				}
				paragraph = nil
			} else {
				paragraph = append(paragraph, r.WithText(piece))
			}
			previous = piece
		}
	}
	if len(paragraph) > 0 {
		paragraphs = append(paragraphs, paragraph)
	}
	return paragraphs
}

// SplitBreaks 把文本拆成不含换行的片段与单独的 "\n"。
func SplitBreaks(text string) []string {
	var out []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		switch {
		case i < 0:
			out = append(out, text)
			text = ""
		case i == 0:
			out = append(out, "\n")
			text = text[1:]
		default:
			out = append(out, text[:i])
			text = text[i:]
		}
	}
	return out
}
