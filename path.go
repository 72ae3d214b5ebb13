package subdoc

import (
	"strconv"
	"strings"
)

type StepKind uint8

const (
	StepKey StepKind = iota
	StepIndex
	StepAppend
	StepInvalid
)

// Step is one dereference of a Path. Name holds the object key for StepKey
// and the offending text for StepInvalid.
type Step struct {
	Kind  StepKind
	Name  string
	Index int
}

func (s Step) String() string {
	switch s.Kind {
	case StepKey:
		if strings.ContainsAny(s.Name, ".[]`") {
			return "`" + strings.ReplaceAll(s.Name, "`", "``") + "`"
		}
		return s.Name
	case StepIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case StepAppend:
		return "[]"
	default:
		return "<invalid " + strconv.Quote(s.Name) + ">"
	}
}

// Path is a parsed sub-document path, in dereference order.
type Path []Step

func (p Path) String() string {
	var buf strings.Builder
	for i, s := range p {
		if i > 0 && s.Kind == StepKey {
			buf.WriteByte('.')
		}
		buf.WriteString(s.String())
	}
	return buf.String()
}

// Valid reports whether every step parsed cleanly.
func (p Path) Valid() bool {
	for _, s := range p {
		if s.Kind == StepInvalid {
			return false
		}
	}
	return true
}

func (p Path) last() Step {
	return p[len(p)-1]
}

// ParsePath splits a dotted/bracketed path like "a.b[2].c" into steps.
//
// An empty string is the only error. Malformed components become StepInvalid
// steps, which fail with PATH_EINVAL when a spec actually navigates them.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	var p Path
	for len(s) > 0 {
		var comp string
		comp, s = nextComponent(s)
		p = appendComponent(p, comp)
		if len(s) > 0 {
			s = s[1:] // '.'
			if len(s) == 0 {
				p = append(p, Step{Kind: StepInvalid, Name: "."})
			}
		}
	}
	return p, nil
}

// nextComponent returns the text up to the next '.' that is outside of
// backticks and brackets, and the remainder starting at that dot.
func nextComponent(s string) (string, string) {
	var quoted bool
	var depth int
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '`':
			quoted = !quoted
		case quoted:
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == '.' && depth == 0:
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func appendComponent(p Path, comp string) Path {
	invalid := func() Path {
		return append(p, Step{Kind: StepInvalid, Name: comp})
	}
	if comp == "" {
		return invalid()
	}

	rest := comp
	if rest[0] == '`' {
		name, tail, ok := unquoteKey(rest)
		if !ok {
			return invalid()
		}
		p = append(p, Step{Kind: StepKey, Name: name})
		rest = tail
	} else if i := strings.IndexByte(rest, '['); i != 0 {
		if i < 0 {
			i = len(rest)
		}
		name := rest[:i]
		if strings.ContainsAny(name, "]`") {
			return invalid()
		}
		p = append(p, Step{Kind: StepKey, Name: name})
		rest = rest[i:]
	}

	for len(rest) > 0 {
		if rest[0] != '[' {
			return invalid()
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return invalid()
		}
		p = append(p, parseAccessor(rest[1:end]))
		rest = rest[end+1:]
	}
	return p
}

func parseAccessor(s string) Step {
	if s == "" {
		return Step{Kind: StepAppend}
	}
	if s == "-1" {
		return Step{Kind: StepIndex, Index: -1}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Step{Kind: StepInvalid, Name: "[" + s + "]"}
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Step{Kind: StepInvalid, Name: "[" + s + "]"}
	}
	return Step{Kind: StepIndex, Index: n}
}

// unquoteKey parses a backtick-quoted key at the start of s; a doubled
// backtick stands for a literal one.
func unquoteKey(s string) (name, rest string, ok bool) {
	var buf strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '`' {
			buf.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '`' {
			buf.WriteByte('`')
			i++
			continue
		}
		return buf.String(), s[i+1:], true
	}
	return "", "", false
}
