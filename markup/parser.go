package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// markupLexer 把内联标记切分为标签、换行与普通文本。
	// 规则覆盖全部字符，零散的 '<' 与 '\r' 由 Stray 接住并按原样视为文本。
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Tag", Pattern: `</?[A-Za-z][A-Za-z0-9_]*(?:\s+[A-Za-z_][A-Za-z0-9_-]*\s*=\s*(?:"[^"]*"|'[^']*'))*\s*/?>`},
		{Name: "Newline", Pattern: `\r?\n`},
		{Name: "Text", Pattern: `[^<\r\n]+`},
		{Name: "Stray", Pattern: `[<\r]`},
	})

	tagTokenType     = mustTokenType("Tag")
	newlineTokenType = mustTokenType("Newline")

	tagLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
		{Name: "Punct", Pattern: `[</>=]`},
	})

	tagParser = participle.MustBuild[tagNode](
		participle.Lexer(tagLexer),
		participle.Elide("Whitespace"),
	)
)

// tagNode 是单个标签的语法树，例如 <font name="x" size='12'>。
type tagNode struct {
	Closing     bool        `parser:"'<' @'/'?"`
	Name        string      `parser:"@Ident"`
	Attrs       []*attrNode `parser:"@@*"`
	SelfClosing bool        `parser:"@'/'? '>'"`
}

type attrNode struct {
	Key   string    `parser:"@Ident '='"`
	Value attrValue `parser:"@String"`
}

// attrValue 去掉属性值两侧的单/双引号并还原实体。
type attrValue string

// Capture implements participle.Capture.
func (v *attrValue) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("属性值缺失")
	}
	raw := values[0]
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	*v = attrValue(attrUnescaper.Replace(raw))
	return nil
}

func (t *tagNode) attr(key string) (string, bool) {
	for _, a := range t.Attrs {
		if strings.EqualFold(a.Key, key) {
			return string(a.Value), true
		}
	}
	return "", false
}

// SyntaxError 描述标签属性无法解析的位置。
type SyntaxError struct {
	Offset int
	Tag    string
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("markup: 偏移 %d 处的标签 %s 无法解析: %s", e.Offset, e.Tag, e.Msg)
}

type fontFrame struct {
	name             string
	size             float64
	characterSpacing *float64
}

type linkFrame struct {
	href, anchor, local string
}

// parseState 保存打开标签的栈。关闭标签弹出最近一次匹配的条目，
// 没有匹配的关闭标签被静默忽略。
type parseState struct {
	styles []Style
	colors []Color
	fonts  []fontFrame
	links  []linkFrame
	runs   []Run
}

// Parse 把内联标记解析为有序的 Run 序列。
func Parse(input string) ([]Run, error) {
	lex, err := markupLexer.LexString("", input)
	if err != nil {
		return nil, fmt.Errorf("markup: 词法分析失败: %w", err)
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("markup: 词法分析失败: %w", err)
	}

	st := &parseState{}
	for _, tok := range tokens {
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case newlineTokenType:
			st.emit("\n")
		case tagTokenType:
			if err := st.applyTag(tok); err != nil {
				return nil, err
			}
		default:
			st.emit(Unescape(tok.Value))
		}
	}
	return st.runs, nil
}

// MustParse 与 Parse 相同，解析失败时 panic，便于测试与常量文本。
func MustParse(input string) []Run {
	runs, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return runs
}

func (st *parseState) applyTag(tok lexer.Token) error {
	node, err := tagParser.ParseString("", tok.Value)
	if err != nil {
		return &SyntaxError{Offset: tok.Pos.Offset, Tag: tok.Value, Msg: err.Error()}
	}
	name := strings.ToLower(node.Name)
	if node.Closing {
		if !st.close(name) {
			st.emit(tok.Value)
		}
		return nil
	}
	ok, err := st.open(name, node)
	if err != nil {
		return &SyntaxError{Offset: tok.Pos.Offset, Tag: tok.Value, Msg: err.Error()}
	}
	if !ok {
		// 未知标签按字面文本保留
		st.emit(tok.Value)
	}
	return nil
}

func (st *parseState) open(name string, node *tagNode) (bool, error) {
	if flag, ok := styleTag(name); ok {
		st.styles = append(st.styles, flag)
		return true, nil
	}
	switch name {
	case "br":
		st.emit("\n")
	case "color":
		c, err := parseColorAttrs(node)
		if err != nil {
			return true, err
		}
		st.colors = append(st.colors, c)
	case "font":
		frame := fontFrame{}
		if v, ok := node.attr("name"); ok {
			frame.name = v
		}
		if v, ok := node.attr("size"); ok {
			size, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || size <= 0 {
				return true, fmt.Errorf("字号 %q 无效", v)
			}
			frame.size = size
		}
		if v, ok := node.attr("character_spacing"); ok {
			cs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return true, fmt.Errorf("字间距 %q 无效", v)
			}
			frame.characterSpacing = &cs
		}
		st.fonts = append(st.fonts, frame)
	case "link", "a":
		frame := linkFrame{}
		frame.href, _ = node.attr("href")
		frame.anchor, _ = node.attr("anchor")
		frame.local, _ = node.attr("local")
		st.links = append(st.links, frame)
	default:
		return false, nil
	}
	return true, nil
}

// close 返回 false 表示标签名未知（按文本保留）；已知但不匹配的关闭标签返回 true。
func (st *parseState) close(name string) bool {
	if flag, ok := styleTag(name); ok {
		for i := len(st.styles) - 1; i >= 0; i-- {
			if st.styles[i] == flag {
				st.styles = append(st.styles[:i], st.styles[i+1:]...)
				break
			}
		}
		return true
	}
	switch name {
	case "br":
	case "color":
		if n := len(st.colors); n > 0 {
			st.colors = st.colors[:n-1]
		}
	case "font":
		if n := len(st.fonts); n > 0 {
			st.fonts = st.fonts[:n-1]
		}
	case "link", "a":
		if n := len(st.links); n > 0 {
			st.links = st.links[:n-1]
		}
	default:
		return false
	}
	return true
}

func styleTag(name string) (Style, bool) {
	switch name {
	case "b", "strong":
		return Bold, true
	case "i", "em":
		return Italic, true
	case "u":
		return Underline, true
	case "strikethrough":
		return Strikethrough, true
	case "sub":
		return Subscript, true
	case "sup":
		return Superscript, true
	}
	return 0, false
}

// current 根据各个栈计算当前生效的格式。
func (st *parseState) current() Run {
	var r Run
	for _, s := range st.styles {
		r.Styles |= s
	}
	if n := len(st.colors); n > 0 {
		c := st.colors[n-1]
		r.Color = &c
	}
	for i := len(st.fonts) - 1; i >= 0; i-- {
		f := st.fonts[i]
		if r.Font == "" && f.name != "" {
			r.Font = f.name
		}
		if r.Size == 0 && f.size > 0 {
			r.Size = f.size
		}
		if r.CharacterSpacing == nil && f.characterSpacing != nil {
			cs := *f.characterSpacing
			r.CharacterSpacing = &cs
		}
	}
	if n := len(st.links); n > 0 {
		l := st.links[n-1]
		r.Link, r.Anchor, r.Local = l.href, l.anchor, l.local
	}
	return r
}

// emit 追加文本，与上一个同格式的非换行 Run 合并。
func (st *parseState) emit(text string) {
	if text == "" {
		return
	}
	r := st.current().WithText(text)
	if n := len(st.runs); n > 0 && text != "\n" {
		last := &st.runs[n-1]
		if !last.IsBreak() && last.SameFormat(r) {
			last.Text += text
			return
		}
	}
	st.runs = append(st.runs, r)
}

func parseColorAttrs(node *tagNode) (Color, error) {
	if v, ok := node.attr("rgb"); ok {
		return ParseHex(v)
	}
	var vals [4]float64
	for i, key := range []string{"c", "m", "y", "k"} {
		v, ok := node.attr(key)
		if !ok {
			return Color{}, fmt.Errorf("color 标签缺少 rgb 或 c/m/y/k 属性")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Color{}, fmt.Errorf("CMYK 分量 %s=%q 无效", key, v)
		}
		vals[i] = f
	}
	return CMYK(vals[0], vals[1], vals[2], vals[3]), nil
}

// ParseHex 解析 "#rrggbb"、"rrggbb" 或 "#rgb" 形式的颜色。
func ParseHex(value string) (Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) == 8 {
		v = v[:6]
	}
	if len(v) != 6 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	return RGB(uint8(n>>16), uint8(n>>8), uint8(n)), nil
}

var (
	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	attrUnescaper = strings.NewReplacer("&quot;", `"`, "&#39;", "'", "&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// Unescape 还原 &amp; &lt; &gt; 三种实体。
func Unescape(s string) string { return unescaper.Replace(s) }

// Escape 转义 & < >，使任意文本可以安全嵌入标记。
func Escape(s string) string { return escaper.Replace(s) }

func mustTokenType(name string) lexer.TokenType {
	tt, ok := markupLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
