package dsl

import "strings"

// Pages returns the page sections in document order.
func (d *Document) Pages() []*PageSection {
	var out []*PageSection
	for _, section := range d.Sections {
		if section.Page != nil {
			out = append(out, section.Page)
		}
	}
	return out
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Page != nil:
		return "page"
	default:
		return "unknown"
	}
}

// Landscape reports whether the page header asks for landscape orientation.
// The last orientation keyword wins.
func (p *PageSection) Landscape() bool {
	landscape := false
	for _, opt := range p.Options {
		switch opt.Orientation {
		case "landscape":
			landscape = true
		case "portrait":
			landscape = false
		}
	}
	return landscape
}

// Margin returns the lengths of the last margin option, or nil.
func (p *PageSection) Margin() []string {
	var out []string
	for _, opt := range p.Options {
		if len(opt.Margin) > 0 {
			out = opt.Margin
		}
	}
	return out
}

// Map returns the pairs as a map; later keys override earlier ones.
func (a *Attrs) Map() map[string]string {
	out := map[string]string{}
	if a == nil {
		return out
	}
	for _, p := range a.Pairs {
		out[p.Key] = p.Value
	}
	return out
}

// StyleName returns the leading style name, if any.
func (a *Attrs) StyleName() string {
	if a == nil {
		return ""
	}
	return a.Style
}

// Text concatenates the string literals of the body.
func (b *TextBody) Text() string {
	if b == nil {
		return ""
	}
	var builder strings.Builder
	for _, line := range b.Lines {
		builder.WriteString(string(line.Value))
	}
	return builder.String()
}

// Line returns the source line of the element, for error messages.
func (e *Element) Line() int {
	switch {
	case e.Defaults != nil:
		return e.Defaults.Pos.Line
	case e.Flow != nil:
		return e.Flow.Pos.Line
	case e.Text != nil:
		return e.Text.Pos.Line
	case e.Box != nil:
		return e.Box.Pos.Line
	case e.PageBreak != nil:
		return e.PageBreak.Pos.Line
	case e.Shape != nil:
		return e.Shape.Pos.Line
	default:
		return 0
	}
}

// Text renders the value back to its source spelling: strings unquoted,
// references joined with dots, list items joined with commas.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.List != nil:
		return strings.Join(v.Strings(), ",")
	case v.Ref != nil:
		return strings.Join(v.Ref.Parts, ".")
	default:
		return ""
	}
}

// Strings flattens a list into its item texts, skipping empty ones. A scalar
// value is split on commas.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	var out []string
	if v.List != nil {
		for _, item := range v.List.Items {
			if s := item.Text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	for _, part := range strings.Split(v.Text(), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
