package textbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ByLCY/folio/markup"
)

func lineTexts(b *Box) []string {
	var out []string
	for _, l := range b.Lines() {
		out = append(out, l.Text)
	}
	return out
}

func TestWrapByCharacterInsideLongToken(t *testing.T) {
	doc := newStubDoc()
	doc.ratio = 1 // 'a' 宽 12pt，十个 'a' 为 120pt
	text := strings.Repeat("a", 10) + " " + strings.Repeat("a", 10)
	box := NewBox(doc, plain(text), Options{At: at(0, 500), Width: 100, Height: 200})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("expected no leftover, got %+v", leftover)
	}
	want := []string{"aaaaaaaa", "aa", "aaaaaaaa", "aa"}
	if diff := cmp.Diff(want, lineTexts(box)); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	for _, l := range box.Lines() {
		if l.Width > 100 {
			t.Fatalf("line %q wider than box: %v", l.Text, l.Width)
		}
		if strings.Contains(l.Text, strings.Repeat("a", 10)) {
			t.Fatalf("line %q keeps an unbroken overlong token", l.Text)
		}
	}
	if got := strings.ReplaceAll(box.Text(), "\n", ""); got != strings.ReplaceAll(text, " ", "") {
		t.Fatalf("printed text %q does not reconstruct input", got)
	}
}

func TestTruncateReturnsRemainingLines(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, plain("line1\nline2\nline3\nline4\nline5"), Options{At: at(0, 500), Width: 200, Height: 24})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if diff := cmp.Diff([]string{"line1", "line2"}, lineTexts(box)); diff != "" {
		t.Fatalf("printed lines mismatch (-want +got):\n%s", diff)
	}
	if got := markup.Text(leftover); got != "line3\nline4\nline5" {
		t.Fatalf("leftover = %q", got)
	}
	if box.EverythingPrinted() || box.NothingPrinted() {
		t.Fatalf("unexpected flags: everything=%v nothing=%v", box.EverythingPrinted(), box.NothingPrinted())
	}
	if !approx(box.Height(), 24) {
		t.Fatalf("height = %v, want 24", box.Height())
	}
}

func TestLeftoverKeepsStyles(t *testing.T) {
	doc := newStubDoc()
	runs := markup.MustParse("aaaa <b>bbbb cccc</b>")
	box := NewBox(doc, runs, Options{At: at(0, 500), Width: 60, Height: 12})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want := []markup.Run{{Text: "cccc", Styles: markup.Bold}}
	if diff := cmp.Diff(want, leftover); diff != "" {
		t.Fatalf("leftover mismatch (-want +got):\n%s", diff)
	}
}

func TestJustifyWithFullLineAddsNoSpacing(t *testing.T) {
	doc := newStubDoc()
	// "one two three" 为 13 个字符，恰好 78pt
	box := NewBox(doc, plain("one two three four"), Options{At: at(0, 500), Width: 78, Height: 100, Align: AlignJustify})
	if _, err := box.Render(false); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	lines := box.Lines()
	if len(lines) != 2 || lines[0].Text != "one two three" {
		t.Fatalf("unexpected lines: %v", lineTexts(box))
	}
	if lines[0].WordSpacing != 0 {
		t.Fatalf("word spacing = %v, want 0", lines[0].WordSpacing)
	}
}

func TestJustifyFillsWidthExactly(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, plain("aa bb cc dd ee ff gg hh"), Options{At: at(10, 500), Width: 50, Height: 100, Align: AlignJustify})
	if _, err := box.Render(false); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	lines := box.Lines()
	if len(lines) != 3 {
		t.Fatalf("unexpected lines: %v", lineTexts(box))
	}
	for i, l := range lines[:len(lines)-1] {
		if !approx(l.Width, 50) {
			t.Fatalf("line %d width = %v, want 50", i, l.Width)
		}
		last := l.Fragments[len(l.Fragments)-1]
		if !approx(last.Right(), 60) {
			t.Fatalf("line %d ends at %v, want 60", i, last.Right())
		}
	}
	final := lines[len(lines)-1]
	if final.WordSpacing != 0 {
		t.Fatalf("final line must not be justified, spacing %v", final.WordSpacing)
	}
	if doc.draws[0].WordSpacing != 1 {
		t.Fatalf("draw word spacing = %v, want 1", doc.draws[0].WordSpacing)
	}
}

func TestShrinkToFitClampsAtMinimum(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, plain("abcdefghij"), Options{
		At:          at(0, 500),
		Width:       15,
		Height:      100,
		SingleLine:  true,
		Overflow:    OverflowShrinkToFit,
		MinFontSize: 5,
	})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if box.FontSize() != 5 {
		t.Fatalf("font size = %v, want 5", box.FontSize())
	}
	if got := markup.Text(leftover); got != "ghij" {
		t.Fatalf("leftover = %q, want ghij", got)
	}
}

func TestShrinkToFitStopsWhenEverythingFits(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, plain("abcdef"), Options{At: at(0, 500), Width: 30, Height: 100, SingleLine: true, Overflow: OverflowShrinkToFit})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(leftover) != 0 || box.FontSize() != 10 {
		t.Fatalf("size %v leftover %+v, want size 10 and no leftover", box.FontSize(), leftover)
	}
}

func TestDryRunMatchesRealRun(t *testing.T) {
	runs := markup.MustParse("The <i>quick</i> brown fox jumps over the <b>lazy</b> dog.\nSecond paragraph here.")
	opts := Options{At: at(0, 500), Width: 90, Height: 40, Align: AlignJustify, VAlign: VAlignCenter}

	dryDoc := newStubDoc()
	dry := NewBox(dryDoc, runs, opts)
	dryLeft, err := dry.Render(true)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if len(dryDoc.draws) != 0 {
		t.Fatalf("dry run drew %d fragments", len(dryDoc.draws))
	}

	realDoc := newStubDoc()
	realBox := NewBox(realDoc, runs, opts)
	realLeft, err := realBox.Render(false)
	if err != nil {
		t.Fatalf("real run failed: %v", err)
	}
	if diff := cmp.Diff(lineTexts(dry), lineTexts(realBox)); diff != "" {
		t.Fatalf("line breaks differ (-dry +real):\n%s", diff)
	}
	if diff := cmp.Diff(dryLeft, realLeft); diff != "" {
		t.Fatalf("leftover differs (-dry +real):\n%s", diff)
	}
}

func TestWiderBoxNeverAddsLines(t *testing.T) {
	text := "lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod"
	previous := -1
	for width := 70.0; width <= 400; width += 10 {
		box := NewBox(newStubDoc(), plain(text), Options{At: at(0, 700), Width: width, Height: 700})
		if _, err := box.Render(true); err != nil {
			t.Fatalf("width %v: %v", width, err)
		}
		n := len(box.Lines())
		if previous >= 0 && n > previous {
			t.Fatalf("width %v produced %d lines, narrower box produced %d", width, n, previous)
		}
		previous = n
	}
}

func TestRenderUntilExhaustedReconstructsText(t *testing.T) {
	text := "alpha beta gamma\ndelta epsilon zeta eta\n\ntheta"
	runs := plain(text)
	var printed []string
	for i := 0; len(runs) > 0; i++ {
		if i > 20 {
			t.Fatalf("did not terminate")
		}
		box := NewBox(newStubDoc(), runs, Options{At: at(0, 500), Width: 60, Height: 24})
		var err error
		if runs, err = box.Render(false); err != nil {
			t.Fatalf("render failed: %v", err)
		}
		printed = append(printed, box.Text())
	}
	got := strings.Join(printed, "\n")
	normalize := func(s string) string { return strings.Join(strings.Fields(s), "") }
	if normalize(got) != normalize(text) {
		t.Fatalf("printed %q does not reconstruct %q", got, text)
	}
	if strings.Count(got, "\n\n") != 1 {
		t.Fatalf("blank line lost: %q", got)
	}
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		align Align
		dir   Direction
		x     float64
		text  string
	}{
		{AlignLeft, LTR, 10, "ab"},
		{AlignCenter, LTR, 10 + 50 - 6, "ab"},
		{AlignRight, LTR, 10 + 100 - 12, "ab"},
		{"", RTL, 10 + 100 - 12, "ba"},
	}
	for _, tt := range tests {
		doc := newStubDoc()
		box := NewBox(doc, plain("ab"), Options{At: at(10, 500), Width: 100, Height: 50, Align: tt.align, Direction: tt.dir})
		if _, err := box.Render(false); err != nil {
			t.Fatalf("%s/%s: %v", tt.align, tt.dir, err)
		}
		if len(doc.draws) != 1 {
			t.Fatalf("%s/%s: expected 1 draw, got %d", tt.align, tt.dir, len(doc.draws))
		}
		d := doc.draws[0]
		if !approx(d.At.X, tt.x) || d.Text != tt.text {
			t.Fatalf("%s/%s: drew %q at %v, want %q at %v", tt.align, tt.dir, d.Text, d.At.X, tt.text, tt.x)
		}
		if !approx(d.At.Y, 500-9) {
			t.Fatalf("%s/%s: baseline %v, want 491", tt.align, tt.dir, d.At.Y)
		}
	}
}

func TestRTLFragmentOrder(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, markup.MustParse("ab <b>cd</b>"), Options{At: at(0, 500), Width: 100, Height: 50, Direction: RTL})
	if _, err := box.Render(false); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if diff := cmp.Diff([]string{"dc", " ba"}, doc.drawnTexts()); diff != "" {
		t.Fatalf("draw order mismatch (-want +got):\n%s", diff)
	}
	if !approx(doc.draws[0].At.X, 100-30) || !approx(doc.draws[1].At.X, 100-18) {
		t.Fatalf("unexpected positions %v %v", doc.draws[0].At.X, doc.draws[1].At.X)
	}
}

func TestVerticalAlignment(t *testing.T) {
	tests := []struct {
		valign   VAlign
		baseline float64
	}{
		{VAlignTop, 200 - 9},
		{VAlignCenter, 200 - (100-12+3)*0.5 - 9},
		{VAlignBottom, 200 - (100 - 12 + 3) - 9},
	}
	for _, tt := range tests {
		box := NewBox(newStubDoc(), plain("hello"), Options{At: at(0, 200), Width: 100, Height: 100, VAlign: tt.valign})
		if _, err := box.Render(false); err != nil {
			t.Fatalf("%s: %v", tt.valign, err)
		}
		if got := box.Lines()[0].Baseline; !approx(got, tt.baseline) {
			t.Fatalf("%s: baseline %v, want %v", tt.valign, got, tt.baseline)
		}
	}
}

func TestRotationPivot(t *testing.T) {
	tests := []struct {
		pivot Pivot
		want  string
	}{
		{"", "rotate 30 (10,200)"},
		{PivotCenter, "rotate 30 (60,175)"},
		{PivotUpperRight, "rotate 30 (110,200)"},
		{PivotLowerRight, "rotate 30 (110,150)"},
		{PivotLowerLeft, "rotate 30 (10,150)"},
	}
	for _, tt := range tests {
		doc := newStubDoc()
		box := NewBox(doc, plain("x"), Options{At: at(10, 200), Width: 100, Height: 50, Rotate: 30, RotateAround: tt.pivot})
		if _, err := box.Render(false); err != nil {
			t.Fatalf("%s: %v", tt.pivot, err)
		}
		if diff := cmp.Diff([]string{tt.want, "restore"}, doc.transforms); diff != "" {
			t.Fatalf("%s transforms mismatch (-want +got):\n%s", tt.pivot, diff)
		}
	}

	doc := newStubDoc()
	if _, err := NewBox(doc, plain("x"), Options{At: at(10, 200), Width: 100, Height: 50, Rotate: 30}).Render(true); err != nil {
		t.Fatal(err)
	}
	if len(doc.transforms) != 0 {
		t.Fatalf("dry run must not rotate, got %v", doc.transforms)
	}
}

func TestDecorationsAndAnnotations(t *testing.T) {
	doc := newStubDoc()
	runs := markup.MustParse(`<u><link href="https://example.com">hi</link></u> <strikethrough>no</strikethrough> <a anchor="top">up</a>`)
	if _, err := FormattedTextBox(doc, runs, Options{At: at(0, 100), Width: 200, Height: 50}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	baseline := 100 - 9.0
	wantStrokes := [][2]Point{
		{{X: 0, Y: baseline - 1.25}, {X: 12, Y: baseline - 1.25}},
		{{X: 18, Y: baseline + 0.3*9}, {X: 30, Y: baseline + 0.3*9}},
	}
	if diff := cmp.Diff(wantStrokes, doc.strokes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("strokes mismatch (-want +got):\n%s", diff)
	}
	wantAnnotations := []stubAnnotation{
		{Area: Rect{Left: 0, Bottom: baseline - 3, Right: 12, Top: baseline + 9}, Annotation: Annotation{Kind: AnnotationLink, Target: "https://example.com"}},
		{Area: Rect{Left: 36, Bottom: baseline - 3, Right: 48, Top: baseline + 9}, Annotation: Annotation{Kind: AnnotationAnchor, Target: "top"}},
	}
	if diff := cmp.Diff(wantAnnotations, doc.annotations, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("annotations mismatch (-want +got):\n%s", diff)
	}
}

type recordingCallback struct{ events *[]string }

func (r recordingCallback) RenderBehind(c Canvas, f *Fragment) error {
	*r.events = append(*r.events, "behind:"+f.Text())
	return nil
}

func (r recordingCallback) RenderInFront(c Canvas, f *Fragment) error {
	*r.events = append(*r.events, "front:"+f.Text())
	return nil
}

func TestCallbacksWrapEachFragment(t *testing.T) {
	var events []string
	doc := newStubDoc()
	runs := []markup.Run{{Text: "one", Callbacks: []any{recordingCallback{&events}}}, {Text: " two"}}
	opts := Options{
		At: at(0, 100), Width: 200, Height: 50,
		DrawText: func(c Canvas, d TextDraw) error {
			events = append(events, "draw:"+d.Text)
			return nil
		},
	}
	if _, err := FormattedTextBox(doc, runs, opts); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want := []string{"behind:one", "draw:one", "front:one", "draw: two"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if len(doc.draws) != 0 {
		t.Fatalf("DrawText hook must replace canvas drawing")
	}
}

func TestScriptsShiftWithoutChangingLineMetrics(t *testing.T) {
	doc := newStubDoc()
	box := NewBox(doc, markup.MustParse("x<sup>2</sup>y<sub>i</sub>"), Options{At: at(0, 100), Width: 200, Height: 50})
	if _, err := box.Render(false); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if box.Ascender() != 9 || box.Descender() != 3 {
		t.Fatalf("line metrics changed by scripts: asc %v desc %v", box.Ascender(), box.Descender())
	}
	frags := box.Lines()[0].Fragments
	if len(frags) != 4 {
		t.Fatalf("expected 4 fragments, got %d", len(frags))
	}
	if !approx(frags[1].Face.Size, 12*0.583) {
		t.Fatalf("superscript size %v", frags[1].Face.Size)
	}
	if !approx(frags[1].Baseline, 91+0.85*9) {
		t.Fatalf("superscript baseline %v", frags[1].Baseline)
	}
	if !approx(frags[3].Baseline, 91-3) {
		t.Fatalf("subscript baseline %v", frags[3].Baseline)
	}
}

func TestCannotFit(t *testing.T) {
	doc := newStubDoc()
	_, err := NewBox(doc, plain("abc"), Options{At: at(0, 100), Width: 1, Height: 50}).Render(false)
	if !errors.Is(err, ErrCannotFit) {
		t.Fatalf("expected ErrCannotFit, got %v", err)
	}

	_, err = NewBox(doc, plain("abcdefghij"), Options{At: at(0, 100), Width: 20, Height: 50, DisableWrapByChar: true}).Render(false)
	if !errors.Is(err, ErrCannotFit) {
		t.Fatalf("expected ErrCannotFit with char wrap disabled, got %v", err)
	}
}

func TestBadFontFamily(t *testing.T) {
	doc := newStubDoc()
	runs := []markup.Run{{Text: "x", Font: "Symbols", Styles: markup.Bold}}
	_, err := NewBox(doc, runs, Options{At: at(0, 100), Width: 100, Height: 50}).Render(false)
	if !errors.Is(err, ErrBadFontFamily) {
		t.Fatalf("expected ErrBadFontFamily, got %v", err)
	}
}

func TestIncompatibleEncoding(t *testing.T) {
	bad := "ok\xff"
	_, err := NewBox(newStubDoc(), plain(bad), Options{At: at(0, 100), Width: 100, Height: 50}).Render(false)
	var enc *IncompatibleEncodingError
	if !errors.As(err, &enc) {
		t.Fatalf("expected IncompatibleEncodingError, got %v", err)
	}
	if enc.Text != bad {
		t.Fatalf("error must keep the offending text, got %q", enc.Text)
	}
}

func TestExpandUsesBoundsHeight(t *testing.T) {
	doc := newStubDoc()
	bounds := Rect{Left: 0, Bottom: 300, Right: 100, Top: 400}
	text := strings.TrimSpace(strings.Repeat("word ", 20))
	box := NewBox(doc, plain(text), Options{At: at(0, 400), Width: 100, Height: 12, Overflow: OverflowExpand, Bounds: &bounds})
	leftover, err := box.Render(false)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("expand should fit all text in bounds, leftover %q", markup.Text(leftover))
	}
	if len(box.Lines()) < 2 {
		t.Fatalf("expected several lines, got %d", len(box.Lines()))
	}
}

func TestFallbackFontsDuringRender(t *testing.T) {
	doc := newStubDoc()
	doc.missing["Body"] = "€"
	doc.defaults.FallbackFonts = []string{"Symbols"}
	box := NewBox(doc, plain("A€B"), Options{At: at(0, 100), Width: 100, Height: 50})
	if _, err := box.Render(false); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var fonts []string
	for _, d := range doc.draws {
		fonts = append(fonts, d.Text+"="+d.Face.Font)
	}
	if diff := cmp.Diff([]string{"A=Body", "€=Symbols", "B=Body"}, fonts); diff != "" {
		t.Fatalf("fonts mismatch (-want +got):\n%s", diff)
	}
}
