package textbox

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/folio/markup"
)

// normalizedRuns 复制原始 Run，按回退字体重新分段并规范化编码。
func (b *Box) normalizedRuns() ([]markup.Run, error) {
	runs := markup.Clone(b.original)
	if len(b.fallbackFonts) > 0 {
		runs = b.processFallbackFonts(runs)
	}
	for i := range runs {
		if runs[i].IsBreak() {
			continue
		}
		face := Face{Font: b.font, Size: b.fontSize}
		if runs[i].Font != "" {
			face.Font = runs[i].Font
		}
		text, err := b.doc.Normalize(face, runs[i].Text)
		if err != nil {
			var enc *IncompatibleEncodingError
			if errors.As(err, &enc) {
				return nil, err
			}
			return nil, &IncompatibleEncodingError{Text: runs[i].Text, Err: err}
		}
		runs[i].Text = text
	}
	return runs, nil
}

func (b *Box) processFallbackFonts(runs []markup.Run) []markup.Run {
	out := make([]markup.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, ResegmentFallback(b.doc, r, b.font, b.fallbackFonts)...)
	}
	Logger().Debug("textbox: 回退字体重分段", "runs", len(runs), "segments", len(out))
	return out
}

// ResegmentFallback 为每个字符挑选字体：依次尝试 Run 自身字体（缺省为 base）
// 与 fallbacks，都不含该字形时回到 Run 自身字体；然后把相邻同字体的字符合并。
// 原本未指定字体的 Run，选中 base 的部分仍不指定字体。
func ResegmentFallback(metrics FontMetrics, run markup.Run, base string, fallbacks []string) []markup.Run {
	if run.IsBreak() || run.Text == "" {
		return []markup.Run{run}
	}
	own := run.Font
	if own == "" {
		own = base
	}

	var out []markup.Run
	var segment strings.Builder
	segFont := ""
	flush := func() {
		if segment.Len() == 0 {
			return
		}
		piece := run.WithText(segment.String())
		piece.Font = segFont
		out = append(out, piece)
		segment.Reset()
	}
	for i, r := range run.Text {
		font := pickFont(metrics, r, own, fallbacks)
		if run.Font == "" && font == base {
			font = ""
		}
		if i > 0 && font != segFont {
			flush()
		}
		segFont = font
		segment.WriteRune(r)
	}
	flush()
	return out
}

func pickFont(metrics FontMetrics, r rune, own string, fallbacks []string) string {
	if metrics.HasGlyph(own, r) {
		return own
	}
	for _, f := range fallbacks {
		if metrics.HasGlyph(f, r) {
			return f
		}
	}
	return own
}

// NormalizeUTF8 把文本规范化为 NFC，非法 UTF-8 返回 *IncompatibleEncodingError。
// 供 FontMetrics 的实现复用。
func NormalizeUTF8(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", &IncompatibleEncodingError{Text: text, Err: errors.New("非法的 UTF-8 序列")}
	}
	return norm.NFC.String(text), nil
}
