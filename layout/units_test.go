package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, v := range samples {
		pt := Length{Value: v, Unit: UnitMM}.ToPT()
		back := Length{Value: pt, Unit: UnitPT}.ToMM()
		if diff := math.Abs(back - v); diff > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%gmm pt=%g back=%g", v, pt, back)
		}
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in     string
		wantPT float64
		ok     bool
	}{
		{"12pt", 12, true},
		{"1in", 72, true},
		{"2.54cm", 72, true},
		{"-10mm", -10 * MmToPt, true},
		{"7", 7, true},
		{"portrait", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		l, ok := ParseLength(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseLength(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if math.Abs(l.ToPT()-tt.wantPT) > 1e-6 {
			t.Fatalf("ParseLength(%q) = %gpt, want %gpt", tt.in, l.ToPT(), tt.wantPT)
		}
	}
}

// TestLineHeightLeading 验证行高的倍数与绝对值两种写法换算为行距。
func TestLineHeightLeading(t *testing.T) {
	factor, ok := ParseLineHeight("1.5x")
	if !ok || factor.Kind != LineHeightFactor {
		t.Fatalf("1.5x 应解析为倍数: %+v", factor)
	}
	if got := factor.Leading(12); math.Abs(got-6) > 1e-9 {
		t.Fatalf("1.5x 行距 = %g, want 6", got)
	}

	abs, ok := ParseLineHeight("6mm")
	if !ok || abs.Kind != LineHeightAbsolute {
		t.Fatalf("6mm 应解析为绝对值: %+v", abs)
	}
	if got := abs.Resolve(12); math.Abs(got-6*MmToPt) > 1e-9 {
		t.Fatalf("6mm 行高 = %g", got)
	}

	// 行高小于字号时行距取 0
	tight, _ := ParseLineHeight("8pt")
	if got := tight.Leading(12); got != 0 {
		t.Fatalf("tight leading = %g", got)
	}
	if _, ok := ParseLineHeight("0x"); ok {
		t.Fatalf("0x 不是合法行高")
	}
}
