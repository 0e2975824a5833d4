package paraphrase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Args maps placeholder names to the text substituted for them.
type Args map[string]string

type segment struct {
	literal string
	field   string
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseTemplate splits a template into literal text and {name} fields.
// "{{" and "}}" stand for literal braces.
func parseTemplate(template string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, &FormatError{Template: template, Reason: "unterminated placeholder"}
			}
			name := template[i+1 : i+1+end]
			if !fieldName.MatchString(name) {
				return nil, &FormatError{Template: template, Key: name, Reason: "invalid placeholder name"}
			}
			flush()
			segs = append(segs, segment{field: name})
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &FormatError{Template: template, Reason: "single '}' encountered"}
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

// Render substitutes args into every {name} placeholder of template.
// A placeholder without a matching key is an ErrFormatting.
func Render(template string, args Args) (string, error) {
	segs, err := parseTemplate(template)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range segs {
		if s.field == "" {
			b.WriteString(s.literal)
			continue
		}
		v, ok := args[s.field]
		if !ok {
			return "", &FormatError{Template: template, Key: s.field, Reason: "missing argument"}
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// matcher finds instantiations of a template inside a larger text.
type matcher struct {
	re     *regexp.Regexp
	fields []string

	// Set when a field name repeats. Such templates are matched by
	// backtracking over parts so a repeated field can grow until every use
	// of it captures the same text.
	parts []part
}

type part struct {
	literal *regexp.Regexp
	field   string
}

func compileMatcher(template string) (*matcher, error) {
	segs, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	var (
		pattern  strings.Builder
		fields   []string
		seen     = make(map[string]bool)
		repeated bool
	)
	// Case-insensitive, and fields may span newlines.
	pattern.WriteString("(?is)")
	for _, s := range segs {
		if s.field == "" {
			pattern.WriteString(regexp.QuoteMeta(s.literal))
			continue
		}
		pattern.WriteString("(.+?)")
		fields = append(fields, s.field)
		repeated = repeated || seen[s.field]
		seen[s.field] = true
	}
	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", template, err)
	}
	m := &matcher{re: re, fields: fields}
	if repeated {
		for _, s := range segs {
			if s.field != "" {
				m.parts = append(m.parts, part{field: s.field})
				continue
			}
			m.parts = append(m.parts, part{literal: regexp.MustCompile(`(?is)\A` + regexp.QuoteMeta(s.literal))})
		}
	}
	return m, nil
}

// search returns the named values of the leftmost match in text. Fields
// capture as little as possible. A field name used more than once must
// capture the same text each time, ignoring case.
func (m *matcher) search(text string) (Args, bool) {
	if m.parts == nil {
		loc := m.re.FindStringSubmatchIndex(text)
		if loc == nil {
			return nil, false
		}
		values := make(Args, len(m.fields))
		for i, name := range m.fields {
			values[name] = text[loc[2*(i+1)]:loc[2*(i+1)+1]]
		}
		return values, true
	}

	if !m.re.MatchString(text) {
		return nil, false
	}
	for start := 0; start <= len(text); {
		values := make(Args, len(m.fields))
		if m.match(text, start, 0, values) {
			return values, true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		start += size
	}
	return nil, false
}

// match reports whether parts[i:] match text at pos, filling values.
func (m *matcher) match(text string, pos, i int, values Args) bool {
	if i == len(m.parts) {
		return true
	}
	p := m.parts[i]
	if p.literal != nil {
		loc := p.literal.FindStringIndex(text[pos:])
		return loc != nil && m.match(text, pos+loc[1], i+1, values)
	}
	if v, ok := values[p.field]; ok {
		end := pos + len(v)
		return end <= len(text) && strings.EqualFold(text[pos:end], v) && m.match(text, end, i+1, values)
	}
	for end := pos; end < len(text); {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
		values[p.field] = text[pos:end]
		if m.match(text, end, i+1, values) {
			return true
		}
	}
	delete(values, p.field)
	return false
}
