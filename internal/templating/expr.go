package templating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var errUnsupported = errors.New("unsupported expression")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPipe
	tokDot
	tokComma
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '|':
			tokens = append(tokens, token{kind: tokPipe})
			i++
		case r == '.':
			tokens = append(tokens, token{kind: tokDot})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokComma})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen})
			i++
		case r == '\'' || r == '"':
			j := i + 1
			var sb strings.Builder
			for ; j < len(runes) && runes[j] != r; j++ {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
				}
				sb.WriteRune(runes[j])
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("%w: unterminated string", errUnsupported)
			}
			tokens = append(tokens, token{kind: tokString, text: sb.String()})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[i:j])})
			i = j
		case r == '_' || unicode.IsLetter(r):
			j := i + 1
			for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected %q", errUnsupported, r)
		}
	}
	return append(tokens, token{kind: tokEOF}), nil
}

// translate rewrites a playbook expression (`var.path | filter(arg)`) as a
// text/template pipeline (`.var.path | filter arg`). Filters receive the
// piped value as their last argument, which matches sprig's conventions.
func translate(expr string) (string, error) {
	tokens, err := lex(expr)
	if err != nil {
		return "", err
	}
	p := &parser{tokens: tokens}

	operand, path, err := p.operand()
	if err != nil {
		return "", err
	}
	var filters []string
	for p.peek().kind == tokPipe {
		p.next()
		name := p.next()
		if name.kind != tokIdent {
			return "", fmt.Errorf("%w: expected filter name", errUnsupported)
		}
		call := []string{name.text}
		if p.peek().kind == tokLParen {
			args, err := p.arguments()
			if err != nil {
				return "", err
			}
			call = append(call, args...)
		}
		filters = append(filters, strings.Join(call, " "))
	}
	if p.peek().kind != tokEOF {
		return "", fmt.Errorf("%w: trailing input", errUnsupported)
	}

	// A default filter must see undefined variables as nil instead of
	// failing on the lookup.
	if path != nil && len(filters) > 0 && isDefault(filters[0]) {
		quoted := make([]string, len(path))
		for i, key := range path {
			quoted[i] = strconv.Quote(key)
		}
		operand = "(lookupVar $ " + strings.Join(quoted, " ") + ")"
	}
	return strings.Join(append([]string{operand}, filters...), " | "), nil
}

func isDefault(call string) bool {
	name, _, _ := strings.Cut(call, " ")
	return name == "default" || name == "d"
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// operand parses a literal or a dotted variable path. For paths it also
// returns the path segments.
func (p *parser) operand() (string, []string, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return strconv.Quote(t.text), nil, nil
	case tokNumber:
		return t.text, nil, nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			return "true", nil, nil
		case "false", "False":
			return "false", nil, nil
		case "none", "None":
			return "", nil, fmt.Errorf("%w: none literal", errUnsupported)
		}
		path := []string{t.text}
		for p.peek().kind == tokDot {
			p.next()
			seg := p.next()
			if seg.kind != tokIdent && seg.kind != tokNumber {
				return "", nil, fmt.Errorf("%w: bad attribute", errUnsupported)
			}
			path = append(path, seg.text)
		}
		for _, seg := range path {
			if !isField(seg) {
				return "", nil, fmt.Errorf("%w: attribute %q", errUnsupported, seg)
			}
		}
		return "." + strings.Join(path, "."), path, nil
	}
	return "", nil, fmt.Errorf("%w: expected value", errUnsupported)
}

func (p *parser) arguments() ([]string, error) {
	p.next()
	var args []string
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, _, err := p.operand()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.next().kind {
		case tokComma:
		case tokRParen:
			return args, nil
		default:
			return nil, fmt.Errorf("%w: malformed filter arguments", errUnsupported)
		}
	}
}

func isField(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}
