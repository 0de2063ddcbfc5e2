// Package expr implements the small rule language used by config-driven
// visibility predicates.
//
// Supported forms:
//   - truthiness: `enabled`
//   - comparisons: `relationship == "family"`, `count != 3`, `flag == true`
//   - composition: `a == "x" && !b`, `a || (b && c)`
//
// Identifiers resolve against sibling values; the `extras.` prefix resolves
// against caller supplied context (roles, feature flags) and is not reported
// as a dependency.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const extrasPrefix = "extras."

// Program is a compiled rule.
type Program struct {
	source string
	root   node
	idents []string
}

// Compile parses rule. An empty rule compiles to a program that is always
// true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}

	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", p.tokens[p.pos].raw)
	}
	prog.root = root

	seen := make(map[string]struct{})
	root.identifiers(seen)
	for name := range seen {
		prog.idents = append(prog.idents, name)
	}
	sort.Strings(prog.idents)
	return prog, nil
}

// MustCompile panics when rule does not compile. Intended for literals.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// Identifiers returns the sibling names a rule reads, sorted and unique.
func Identifiers(rule string) ([]string, error) {
	prog, err := Compile(rule)
	if err != nil {
		return nil, err
	}
	return prog.Identifiers(), nil
}

// Source returns the trimmed rule text.
func (p *Program) Source() string {
	return p.source
}

// Identifiers returns the sibling names the program reads.
func (p *Program) Identifiers() []string {
	return append([]string(nil), p.idents...)
}

// Eval evaluates the program. values holds sibling values keyed by name (plain
// Go values: string, float64, bool, time.Time, nil); extras backs `extras.`
// lookups.
func (p *Program) Eval(values, extras map[string]any) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(scope{values: values, extras: extras})
}

type scope struct {
	values map[string]any
	extras map[string]any
}

func (s scope) lookup(name string) (any, bool) {
	if strings.HasPrefix(strings.ToLower(name), extrasPrefix) {
		return lookupPath(s.extras, name[len(extrasPrefix):])
	}
	return lookupPath(s.values, name)
}

func lookupPath(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// lexer

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func lex(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokNeq, "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{tokNot, "!"})
			i++
		case ch == '=' || ch == '&' || ch == '|':
			if i+1 >= len(input) || input[i+1] != ch {
				return nil, fmt.Errorf("visibility/expr: unexpected %q at offset %d", ch, i)
			}
			kind := map[byte]tokenKind{'=': tokEq, '&': tokAnd, '|': tokOr}[ch]
			tokens = append(tokens, token{kind, input[i : i+2]})
			i += 2
		case ch == '"' || ch == '\'':
			end := i + 1
			for end < len(input) && input[end] != ch {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("visibility/expr: unterminated string literal")
			}
			body := input[i+1 : end]
			if ch == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
			}
			tokens = append(tokens, token{tokString, value})
			i = end + 1
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r()!=&|\"'", rune(input[i])) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}
	return tokens, nil
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{tokBool, strings.ToLower(raw)}
	case "null", "nil":
		return token{tokNull, "null"}
	}
	if c := raw[0]; (c >= '0' && c <= '9') || c == '-' || c == '+' {
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return token{tokNumber, raw}
		}
	}
	return token{tokIdent, raw}
}

// parser

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) accept(kind tokenKind) (token, bool) {
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == kind {
		tok := p.tokens[p.pos]
		p.pos++
		return tok, true
	}
	return token{}, false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokAnd); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.accept(tokNot); ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if _, ok := p.accept(tokLParen); ok {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokRParen); !ok {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := p.accept(tokIdent)
	if !ok {
		if p.pos >= len(p.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", p.tokens[p.pos].raw)
	}

	for _, op := range []tokenKind{tokEq, tokNeq} {
		if _, ok := p.accept(op); ok {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			return compareNode{name: ident.raw, negate: op == tokNeq, lit: lit}, nil
		}
	}
	return truthyNode{name: ident.raw}, nil
}

func (p *parser) literal() (token, error) {
	if p.pos >= len(p.tokens) {
		return token{}, errors.New("visibility/expr: missing literal")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokString, tokNumber, tokBool, tokNull:
		return tok, nil
	case tokIdent:
		// bare words compare as strings: `relationship == family`
		return token{tokString, tok.raw}, nil
	default:
		return token{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}

// nodes

type node interface {
	eval(s scope) (bool, error)
	identifiers(into map[string]struct{})
}

type orNode struct{ left, right node }

func (n orNode) eval(s scope) (bool, error) {
	ok, err := n.left.eval(s)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(s)
}

func (n orNode) identifiers(into map[string]struct{}) {
	n.left.identifiers(into)
	n.right.identifiers(into)
}

type andNode struct{ left, right node }

func (n andNode) eval(s scope) (bool, error) {
	ok, err := n.left.eval(s)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(s)
}

func (n andNode) identifiers(into map[string]struct{}) {
	n.left.identifiers(into)
	n.right.identifiers(into)
}

type notNode struct{ inner node }

func (n notNode) eval(s scope) (bool, error) {
	ok, err := n.inner.eval(s)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n notNode) identifiers(into map[string]struct{}) {
	n.inner.identifiers(into)
}

type truthyNode struct{ name string }

func (n truthyNode) eval(s scope) (bool, error) {
	value, ok := s.lookup(n.name)
	return ok && truthy(value), nil
}

func (n truthyNode) identifiers(into map[string]struct{}) {
	addIdentifier(into, n.name)
}

type compareNode struct {
	name   string
	negate bool
	lit    token
}

func (n compareNode) eval(s scope) (bool, error) {
	value, _ := s.lookup(n.name)
	var equal bool
	switch n.lit.kind {
	case tokNull:
		equal = value == nil
	case tokBool:
		equal = truthy(value) == (n.lit.raw == "true")
	case tokNumber:
		want, err := strconv.ParseFloat(n.lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("visibility/expr: invalid number literal %q", n.lit.raw)
		}
		got, ok := toNumber(value)
		equal = ok && got == want
	default:
		equal = value != nil && toString(value) == n.lit.raw
	}
	return equal != n.negate, nil
}

func (n compareNode) identifiers(into map[string]struct{}) {
	addIdentifier(into, n.name)
}

func addIdentifier(into map[string]struct{}, name string) {
	if strings.HasPrefix(strings.ToLower(name), extrasPrefix) {
		return
	}
	into[name] = struct{}{}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
		return trimmed != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case time.Time:
		return !v.IsZero()
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
