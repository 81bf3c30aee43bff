package markup_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/folio/markup"
)

func ptr[T any](v T) *T { return &v }

func TestParseStyles(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []markup.Run
	}{
		{
			name:  "plain",
			input: "hello world",
			want:  []markup.Run{{Text: "hello world"}},
		},
		{
			name:  "nested bold italic",
			input: "a <b>bold <i>both</i></b> c",
			want: []markup.Run{
				{Text: "a "},
				{Text: "bold ", Styles: markup.Bold},
				{Text: "both", Styles: markup.Bold | markup.Italic},
				{Text: " c"},
			},
		},
		{
			name:  "aliases",
			input: "<strong>x</strong><em>y</em>",
			want: []markup.Run{
				{Text: "x", Styles: markup.Bold},
				{Text: "y", Styles: markup.Italic},
			},
		},
		{
			name:  "decorations and scripts",
			input: "<u>u</u><strikethrough>s</strikethrough>H<sub>2</sub>x<sup>2</sup>",
			want: []markup.Run{
				{Text: "u", Styles: markup.Underline},
				{Text: "s", Styles: markup.Strikethrough},
				{Text: "H"},
				{Text: "2", Styles: markup.Subscript},
				{Text: "x"},
				{Text: "2", Styles: markup.Superscript},
			},
		},
		{
			name:  "br and newline become break runs",
			input: "one<br/>two<br>three\nfour",
			want: []markup.Run{
				{Text: "one"}, {Text: "\n"}, {Text: "two"}, {Text: "\n"},
				{Text: "three"}, {Text: "\n"}, {Text: "four"},
			},
		},
		{
			name:  "entities",
			input: "a &lt;b&gt; &amp;amp;",
			want:  []markup.Run{{Text: "a <b> &amp;"}},
		},
		{
			name:  "unmatched closing tag is ignored",
			input: "a</b>b",
			want:  []markup.Run{{Text: "ab"}},
		},
		{
			name:  "unknown tag stays literal",
			input: "<blink>x</blink>",
			want:  []markup.Run{{Text: "<blink>x</blink>"}},
		},
		{
			name:  "stray angle bracket",
			input: "1 < 2",
			want:  []markup.Run{{Text: "1 < 2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := markup.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseAttributes(t *testing.T) {
	got, err := markup.Parse(`<font name="Mono" size='9'>code <font size="14" character_spacing="1.5">big</font></font>` +
		`<color rgb="#ff0000">red</color><color c="0" m="100" y="0" k="0">mag</color>` +
		`<link href="https://example.com">site</link><a anchor="top">up</a><link local="./a.pdf">file</link>`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []markup.Run{
		{Text: "code ", Font: "Mono", Size: 9},
		{Text: "big", Font: "Mono", Size: 14, CharacterSpacing: ptr(1.5)},
		{Text: "red", Color: ptr(markup.RGB(255, 0, 0))},
		{Text: "mag", Color: ptr(markup.CMYK(0, 100, 0, 0))},
		{Text: "site", Link: "https://example.com"},
		{Text: "up", Anchor: "top"},
		{Text: "file", Local: "./a.pdf"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInvalidAttribute(t *testing.T) {
	for _, input := range []string{
		`ok <font size="big">x</font>`,
		`<color rgb="zz">x</color>`,
		`<color c="1">x</color>`,
	} {
		_, err := markup.Parse(input)
		var syn *markup.SyntaxError
		if !errors.As(err, &syn) {
			t.Fatalf("Parse(%q) expected SyntaxError, got %v", input, err)
		}
	}

	_, err := markup.Parse(`ok <font size="big">x</font>`)
	var syn *markup.SyntaxError
	errors.As(err, &syn)
	if syn.Offset != 3 {
		t.Fatalf("expected offset 3, got %d", syn.Offset)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	inputs := []string{
		"plain & <escaped>",
		"a <b>bold <i>both</i></b> c",
		`<font name="Mono" size="9">x</font> <sup>2</sup><sub>i</sub>`,
		`<color rgb="0f62fe"><u>blue</u></color> <color c="10" m="20" y="30" k="40">cmyk</color>`,
		`<link href="https://example.com"><strikethrough>struck</strikethrough></link>`,
		"line one\n\nline three",
		`<font character_spacing="0.5">spaced</font>`,
		`<link href="http://x" anchor="y">both</link>`,
		`<link href='http://x?q="1"&amp;r=2' local="./a b.pdf">quoted</link>`,
		`<font name='It&#39;s "Serif"'>named</font>`,
	}
	for _, input := range inputs {
		runs := markup.MustParse(input)
		again, err := markup.Parse(markup.Serialize(runs))
		if err != nil {
			t.Fatalf("reparse of %q failed: %v", input, err)
		}
		if diff := cmp.Diff(runs, again); diff != "" {
			t.Errorf("round trip of %q mismatch (-want +got):\n%s", input, diff)
		}
	}
}

func TestSerializeKeepsAllLinkTargets(t *testing.T) {
	runs := markup.MustParse(`<link href="http://x" anchor="y" local="z">t</link>`)
	want := `<link href="http://x" anchor="y" local="z">t</link>`
	if got := markup.Serialize(runs); got != want {
		t.Fatalf("Serialize = %s, want %s", got, want)
	}
}

func TestAttributeEntitiesAreDecoded(t *testing.T) {
	runs := markup.MustParse(`<link href="a&quot;b&amp;c">t</link>`)
	if len(runs) != 1 || runs[0].Link != `a"b&c` {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if got := markup.Serialize(runs); got != `<link href="a&quot;b&amp;c">t</link>` {
		t.Fatalf("Serialize = %s", got)
	}
}

func TestEscape(t *testing.T) {
	if got := markup.Escape("a<b & c>"); got != "a&lt;b &amp; c&gt;" {
		t.Fatalf("Escape = %q", got)
	}
	if got := markup.Unescape(markup.Escape("<&>")); got != "<&>" {
		t.Fatalf("Unescape(Escape) = %q", got)
	}
}
