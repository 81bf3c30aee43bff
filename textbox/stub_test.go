package textbox

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/folio/markup"
)

// stubDoc 是确定性的度量与记录实现：每个字符宽 ratio*size，
// 上升 0.75*size，下降 0.25*size，无行间隙。
type stubDoc struct {
	ratio    float64
	missing  map[string]string
	families map[string]string
	defaults Defaults

	draws       []TextDraw
	strokes     [][2]Point
	annotations []stubAnnotation
	transforms  []string
}

type stubAnnotation struct {
	Area Rect
	Annotation
}

func newStubDoc() *stubDoc {
	return &stubDoc{
		ratio:    0.5,
		missing:  map[string]string{},
		families: map[string]string{"Body": "Body"},
		defaults: Defaults{
			Font:      "Body",
			Size:      12,
			Color:     markup.RGB(0, 0, 0),
			Direction: LTR,
			Bounds:    Rect{Left: 0, Bottom: 0, Right: 612, Top: 792},
		},
	}
}

func (s *stubDoc) Width(face Face, text string, kerning bool) (float64, error) {
	return s.ratio * face.Size * float64(utf8.RuneCountInString(text)), nil
}

func (s *stubDoc) VerticalMetrics(face Face) (Metrics, error) {
	return Metrics{Ascender: 0.75 * face.Size, Descender: 0.25 * face.Size}, nil
}

func (s *stubDoc) HasGlyph(font string, r rune) bool {
	return !strings.ContainsRune(s.missing[font], r)
}

func (s *stubDoc) Normalize(face Face, text string) (string, error) {
	return NormalizeUTF8(text)
}

func (s *stubDoc) Family(font string) (string, bool) {
	f, ok := s.families[font]
	return f, ok
}

func (s *stubDoc) DrawText(d TextDraw) error {
	s.draws = append(s.draws, d)
	return nil
}

func (s *stubDoc) StrokeLine(from, to Point, color markup.Color, width float64) error {
	s.strokes = append(s.strokes, [2]Point{from, to})
	return nil
}

func (s *stubDoc) Annotate(area Rect, a Annotation) error {
	s.annotations = append(s.annotations, stubAnnotation{Area: area, Annotation: a})
	return nil
}

func (s *stubDoc) Rotate(angle float64, origin Point) {
	s.transforms = append(s.transforms, fmt.Sprintf("rotate %g (%g,%g)", angle, origin.X, origin.Y))
}

func (s *stubDoc) Restore() { s.transforms = append(s.transforms, "restore") }

func (s *stubDoc) Defaults() Defaults { return s.defaults }

func (s *stubDoc) drawnTexts() []string {
	out := make([]string, len(s.draws))
	for i, d := range s.draws {
		out[i] = d.Text
	}
	return out
}

// stubPager 的每个区域都是同样大小的矩形。
type stubPager struct {
	*stubDoc
	region  Region
	top     float64
	regions int
}

func newStubPager(width, height float64) *stubPager {
	return &stubPager{
		stubDoc: newStubDoc(),
		region:  Region{Left: 0, Bottom: 0, Width: width, Cursor: height},
		top:     height,
		regions: 1,
	}
}

func (p *stubPager) Region() Region { return p.region }

func (p *stubPager) MoveCursor(dy float64) { p.region.Cursor -= dy }

func (p *stubPager) NextRegion() error {
	p.regions++
	p.region.Cursor = p.top
	return nil
}

func plain(text string) []markup.Run { return []markup.Run{{Text: text}} }

func at(x, y float64) *Point { return &Point{X: x, Y: y} }

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
