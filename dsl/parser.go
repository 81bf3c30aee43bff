package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// Color 按 8/6/3 位的顺序尝试，并要求后面不再跟着单词字符，
	// 这样 #0F62FE 不会被截成 #0F6。# 后面紧跟十六进制数字时只能是颜色，
	// #12345 这类位数不对的写法在词法阶段报错。
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n(?:[ \t\r]*\n)*`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#(?:[^0-9A-Fa-f\n][^\n]*|(?m:$))`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+|\.\d+)(?:pt|mm|cm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	newlineTokenType = mustTokenType("Newline")
	lbraceTokenType  = mustTokenType("LBrace")
	rbraceTokenType  = mustTokenType("RBrace")
	symbolTokenType  = mustTokenType("Symbol")
	stringTokenType  = mustTokenType("String")
	identTokenType   = mustTokenType("Ident")

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
		participle.UseLookahead(2),
	)
)

// Document is the root AST node of a folio document.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is a top-level section. A document may hold several page sections;
// each one starts a new page with its own size and margins.
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Page      *PageSection      `parser:"| @@"`
}

// MetaSection holds document information such as title and keywords.
type MetaSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Props []*Property    `parser:"'meta' Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// ResourcesSection groups font, color and style declarations.
type ResourcesSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Decls []*Resource    `parser:"'resources' Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Resource is one declaration inside a resources section.
type Resource struct {
	Font  *FontDecl  `parser:"  @@"`
	Color *ColorDecl `parser:"| @@"`
	Style *StyleDecl `parser:"| @@"`
}

// FontDecl: font Body { src: "..." bold: "..." }
type FontDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'font' @Ident"`
	Props []*Property    `parser:"Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// ColorDecl: color Accent = #0F62FE
type ColorDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'color' @Ident '='?"`
	Value string         `parser:"@Color"`
}

// StyleDecl: style Note extends Lead { size: 9pt }
type StyleDecl struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'style' @Ident"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Props   []*Property    `parser:"Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// PageSection describes one page size with the elements placed on it.
type PageSection struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Size    string         `parser:"'page' @Ident"`
	Options []*PageOption  `parser:"@@*"`
	Body    []*Element     `parser:"Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// PageOption is either an orientation keyword or a margin list.
type PageOption struct {
	Orientation string   `parser:"  @( 'portrait' | 'landscape' )"`
	Margin      []string `parser:"| 'margin' @Number+"`
}

// Element is a statement inside a page or flow body.
type Element struct {
	Defaults  *DefaultsBlock `parser:"  @@"`
	Flow      *FlowBlock     `parser:"| @@"`
	Text      *TextBlock     `parser:"| @@"`
	Box       *BoxBlock      `parser:"| @@"`
	PageBreak *PageBreak     `parser:"| @@"`
	Shape     *Shape         `parser:"| @@"`
}

// DefaultsBlock changes the text defaults from this point on.
type DefaultsBlock struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Props []*Property    `parser:"'defaults' Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// FlowBlock narrows the column for its children.
type FlowBlock struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Attrs *Attrs         `parser:"'flow' @@"`
	Body  []*Element     `parser:"Newline* '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// TextBlock flows formatted text from the column cursor.
type TextBlock struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Attrs *Attrs         `parser:"'text' @@"`
	Body  *TextBody      `parser:"Newline* @@"`
}

// BoxBlock places formatted text in a fixed frame. The body may be omitted
// when the box only continues a previous one.
type BoxBlock struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Attrs *Attrs         `parser:"'box' @@"`
	Body  *TextBody      `parser:"( Newline* @@ )?"`
}

// TextBody is a braced list of string literals, concatenated without separators.
type TextBody struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Lines []*TextLiteral `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// TextLiteral is one quoted string of a text body.
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// PageBreak starts a new page with the current page geometry.
type PageBreak struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Keyword string         `parser:"@'pagebreak'"`
}

// Shape is a line, rect or circle in page coordinates.
type Shape struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Kind  string         `parser:"@( 'line' | 'rect' | 'circle' )"`
	Attrs *Attrs         `parser:"@@"`
}

// Property uses colon syntax (key: value).
type Property struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':' Newline*"`
	Value *Value         `parser:"@@"`
}

// Value is a property value.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	List   *List          `parser:"| @@"`
	Ref    *Ref           `parser:"| @@"`
}

// List captures `[ a, b ]`; items may also be separated by newlines.
type List struct {
	Items []*Value `parser:"'[' Newline* ( @@ ( ( ',' | ';' | Newline ) Newline* @@ )* )? ( ',' | Newline )* ']'"`
}

// Ref is a bare identifier or a dotted path such as theme.muted.
type Ref struct {
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
}

// Attrs are the header arguments of text, box, flow and shape commands:
// an optional style name followed by key value pairs.
type Attrs struct {
	Style string
	Pairs []*Attr
}

// Attr is one key value pair of a command header.
type Attr struct {
	Key   string
	Value string
	Pos   lexer.Position
}

// Parse implements participle.Parseable. It reads tokens up to the end of the
// line, a brace or ';'. An odd token count means the first one names a style.
func (a *Attrs) Parse(lex *lexer.PeekingLexer) error {
	var toks []*lexer.Token
	for !stopsHeader(lex.Peek()) {
		toks = append(toks, lex.Next())
	}
	if len(toks)%2 == 1 {
		if toks[0].Type != identTokenType {
			return participle.Errorf(toks[0].Pos, "样式名 %q 必须是标识符", toks[0].Value)
		}
		a.Style = toks[0].Value
		toks = toks[1:]
	}
	for i := 0; i+1 < len(toks); i += 2 {
		key, val := toks[i], toks[i+1]
		if key.Type != identTokenType {
			return participle.Errorf(key.Pos, "参数名 %q 必须是标识符", key.Value)
		}
		if val.Type == symbolTokenType {
			return participle.Errorf(val.Pos, "参数 %s 缺少取值", key.Value)
		}
		value, err := tokenValue(val)
		if err != nil {
			return participle.Errorf(val.Pos, "参数 %s: %v", key.Value, err)
		}
		a.Pairs = append(a.Pairs, &Attr{Key: key.Value, Value: value, Pos: key.Pos})
	}
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses DSL content from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses DSL content from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

func stopsHeader(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return true
	case symbolTokenType:
		return tok.Value == ";"
	default:
		return false
	}
}

func tokenValue(tok *lexer.Token) (string, error) {
	if tok.Type == stringTokenType {
		return strconv.Unquote(tok.Value)
	}
	return tok.Value, nil
}

func mustTokenType(name string) lexer.TokenType {
	symbols := dslLexer.Symbols()
	tt, ok := symbols[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
