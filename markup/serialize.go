package markup

import (
	"strconv"
	"strings"
)

// Serialize 把 Run 序列还原为内联标记。
// 输出与输入只在语义上等价：每个 Run 独立包裹一组标签，嵌套顺序固定为
// link, color, font, b, i, u, strikethrough, sub, sup。回调不会被序列化。
func Serialize(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.IsBreak() {
			b.WriteString("\n")
			continue
		}
		var closers []string
		open := func(tag, closer string) {
			b.WriteString(tag)
			closers = append(closers, closer)
		}

		if tag := linkTag(r); tag != "" {
			open(tag, "</link>")
		}
		if r.Color != nil {
			open(colorTag(*r.Color), "</color>")
		}
		if tag := fontTag(r); tag != "" {
			open(tag, "</font>")
		}
		for _, st := range []struct {
			flag Style
			name string
		}{
			{Bold, "b"}, {Italic, "i"}, {Underline, "u"},
			{Strikethrough, "strikethrough"}, {Subscript, "sub"}, {Superscript, "sup"},
		} {
			if r.Styles.Has(st.flag) {
				open("<"+st.name+">", "</"+st.name+">")
			}
		}

		b.WriteString(Escape(r.Text))
		for i := len(closers) - 1; i >= 0; i-- {
			b.WriteString(closers[i])
		}
	}
	return b.String()
}

func colorTag(c Color) string {
	if !c.CMYK {
		return `<color rgb="` + c.Hex() + `">`
	}
	return `<color c="` + formatFloat(c.C) + `" m="` + formatFloat(c.M) +
		`" y="` + formatFloat(c.Y) + `" k="` + formatFloat(c.K) + `">`
}

// linkTag 把 href/anchor/local 写进同一个 link 标签，顺序固定。
func linkTag(r Run) string {
	var attrs []string
	for _, a := range [...]struct{ key, val string }{
		{"href", r.Link}, {"anchor", r.Anchor}, {"local", r.Local},
	} {
		if a.val != "" {
			attrs = append(attrs, a.key+`="`+attrEscape(a.val)+`"`)
		}
	}
	if len(attrs) == 0 {
		return ""
	}
	return "<link " + strings.Join(attrs, " ") + ">"
}

func fontTag(r Run) string {
	var attrs []string
	if r.Font != "" {
		attrs = append(attrs, `name="`+attrEscape(r.Font)+`"`)
	}
	if r.Size > 0 {
		attrs = append(attrs, `size="`+formatFloat(r.Size)+`"`)
	}
	if r.CharacterSpacing != nil {
		attrs = append(attrs, `character_spacing="`+formatFloat(*r.CharacterSpacing)+`"`)
	}
	if len(attrs) == 0 {
		return ""
	}
	return "<font " + strings.Join(attrs, " ") + ">"
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// attrEscape 转义双引号属性值，解析时由 attrValue 还原。
func attrEscape(s string) string { return attrEscaper.Replace(s) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
