package task

import (
	"strings"
	"unicode"
)

// Tokenize splits an action line of the form
// `[action:] command[:] [key=value...] [arg...]` into the command name, its
// positional arguments and its keyword arguments.
//
// Leading key=value tokens are keyword arguments. The first token that is
// not a key=value pair and every token after it are positional, so
// `command chdir=/tmp tar xzf a=b` keeps `a=b` as an argument.
func Tokenize(line string) (string, []string, map[string]string) {
	tokens := SplitArgs(line)
	if len(tokens) > 0 && tokens[0] == "-" {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 {
		switch tokens[0] {
		case "action:", "local_action:":
			tokens = tokens[1:]
		case "action", "local_action":
			if len(tokens) > 1 && tokens[1] == ":" {
				tokens = tokens[2:]
			}
		}
	}
	if len(tokens) == 0 {
		return "", []string{}, map[string]string{}
	}
	command := strings.TrimSuffix(tokens[0], ":")
	rest := tokens[1:]
	if len(rest) > 0 && rest[0] == ":" {
		rest = rest[1:]
	}
	args, kwargs := classify(rest)
	return command, args, kwargs
}

// ParseArguments classifies an argument string that follows a module name,
// as in `git: repo=x dest=y`. The rule of Tokenize applies: key=value
// tokens are keyword arguments only until the first positional token.
func ParseArguments(line string) ([]string, map[string]string) {
	return classify(SplitArgs(line))
}

func classify(tokens []string) ([]string, map[string]string) {
	args := []string{}
	kwargs := map[string]string{}
	positional := false
	for _, tok := range tokens {
		if !positional {
			if key, value, ok := keyValue(tok); ok {
				kwargs[key] = value
				continue
			}
			positional = true
		}
		args = append(args, tok)
	}
	return args, kwargs
}

func keyValue(tok string) (string, string, bool) {
	key, value, ok := strings.Cut(tok, "=")
	if !ok || !isIdentifier(key) {
		return "", "", false
	}
	return key, unquote(value), true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// unquote strips one pair of matching outer quotes from a keyword value, so
// `msg="hello world"` yields `hello world`.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// SplitArgs splits a line on whitespace while keeping quoted text and
// template blocks ({{ }}, {% %}, {# #}) inside a single token. Quote
// characters are kept in the token.
func SplitArgs(line string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		depth  int
		inTok  bool
	)
	runes := []rune(line)
	flush := func() {
		if inTok {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inTok = false
		}
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case r == '{' && (next == '{' || next == '%' || next == '#'):
			depth++
			cur.WriteRune(r)
			cur.WriteRune(next)
			inTok = true
			i++
			continue
		case depth > 0 && (r == '}' || r == '%' || r == '#') && next == '}':
			depth--
			cur.WriteRune(r)
			cur.WriteRune(next)
			i++
			continue
		case quote != 0:
			if r == quote && (i == 0 || runes[i-1] != '\\') {
				quote = 0
			}
		case depth == 0 && (r == '"' || r == '\''):
			quote = r
		case depth == 0 && unicode.IsSpace(r):
			flush()
			continue
		}
		cur.WriteRune(r)
		inTok = true
	}
	flush()
	return tokens
}
