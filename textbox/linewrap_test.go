package textbox

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/folio/markup"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"word", []string{"word"}},
		{"  lead", []string{"  ", "lead"}},
		{"a b\tc  ", []string{"a", " ", "b", "\t", "c", "  "}},
		{"中文 测试", []string{"中文", " ", "测试"}},
		{"10\u00a0km 5\u202fkg", []string{"10\u00a0km", " ", "5\u202fkg"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tokenize(tt.in)); diff != "" {
			t.Errorf("tokenize(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestWrapLineWordWrap(t *testing.T) {
	a := newTestArranger(newStubDoc())
	a.SetRuns(markup.MustParse("  hello <b>big</b> world\nnext"))
	var w LineWrap
	opts := WrapOptions{Width: 60, Kerning: true}

	line, err := w.WrapLine(opts, a)
	if err != nil {
		t.Fatal(err)
	}
	if line != "hello big" {
		t.Fatalf("line 1 = %q", line)
	}
	if w.Width() != 54 || w.SpaceCount() != 1 || w.ParagraphFinished() {
		t.Fatalf("width %v spaces %d finished %v", w.Width(), w.SpaceCount(), w.ParagraphFinished())
	}

	// 硬换行片段保留在行文本末尾
	if line, err = w.WrapLine(opts, a); err != nil || line != "world\n" {
		t.Fatalf("line 2 = %q, %v", line, err)
	}
	if !w.ParagraphFinished() {
		t.Fatalf("line ending at a break must finish the paragraph")
	}

	if line, err = w.WrapLine(opts, a); err != nil || line != "next" {
		t.Fatalf("line 3 = %q, %v", line, err)
	}
	if !a.Finished() || !w.ParagraphFinished() {
		t.Fatalf("input should be exhausted")
	}
}

func TestWrapLineHardBreakOnEmptyLine(t *testing.T) {
	a := newTestArranger(newStubDoc())
	a.SetRuns(plain("\nx"))
	var w LineWrap
	line, err := w.WrapLine(WrapOptions{Width: 100}, a)
	if err != nil {
		t.Fatal(err)
	}
	frags, _ := a.Fragments()
	if line != "\n" || len(frags) != 1 || !frags[0].IsBreak() {
		t.Fatalf("line %q fragments %d", line, len(frags))
	}
	if w.Width() != 0 {
		t.Fatalf("break width = %v", w.Width())
	}
}

func TestNoBreakSpaceKeepsTokenTogether(t *testing.T) {
	box := NewBox(newStubDoc(), plain("ab 10\u00a0km"), Options{At: at(0, 500), Width: 36, Height: 100})
	if _, err := box.Render(true); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if diff := cmp.Diff([]string{"ab", "10\u00a0km"}, lineTexts(box)); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}

	// 行尾的不换行空格计入宽度
	box = NewBox(newStubDoc(), plain("ab\u00a0"), Options{At: at(0, 500), Width: 100, Height: 100})
	if _, err := box.Render(true); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if lines := box.Lines(); len(lines) != 1 || lines[0].Width != 18 {
		t.Fatalf("trailing no-break space should keep its width: %+v", lines)
	}
}
