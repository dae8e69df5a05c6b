// Package sexpr reads S-expressions, the interchange format for syntax trees
// handed to the compiler, and extracts golden test cases from Markdown.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeInteger
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeInteger:
		return "integer"
	case NodeList:
		return "list"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is an atom or a list.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeInteger
	Items []*Node // NodeList
	Line  int
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, " "))
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type == NodeSymbol || n.Type == NodeInteger
}

// Head returns the leading symbol of a list, or "".
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// Args returns the items after the head of a list.
func (n *Node) Args() []*Node {
	if n.Type != NodeList || len(n.Items) == 0 {
		return nil
	}
	return n.Items[1:]
}

// Int returns the value of an integer atom.
func (n *Node) Int() (int, error) {
	if n.Type != NodeInteger {
		return 0, fmt.Errorf("line %d: expected integer, got %s %s", n.Line, n.Type, n)
	}
	return strconv.Atoi(n.Text)
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenLParen
	tokenRParen
	tokenAtom
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	}
	return "atom"
}

type token struct {
	Type tokenType
	Text string
	Line int
}

type lexer struct {
	input []rune
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input), line: 1}
}

func (l *lexer) nextToken() token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.input) {
		return token{Type: tokenEOF, Line: l.line}
	}

	switch r := l.input[l.pos]; r {
	case '(':
		l.pos++
		return token{Type: tokenLParen, Text: "(", Line: l.line}
	case ')':
		l.pos++
		return token{Type: tokenRParen, Text: ")", Line: l.line}
	}

	start := l.pos
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == ';' {
			break
		}
		l.pos++
	}
	return token{Type: tokenAtom, Text: string(l.input[start:l.pos]), Line: l.line}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		switch {
		case r == '\n':
			l.line++
			l.pos++
		case unicode.IsSpace(r):
			l.pos++
		case r == ';':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

type parser struct {
	lexer        *lexer
	currentToken token
	peekToken    token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()

	result, err := p.parseDatum()
	if err != nil {
		return nil, err
	}

	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("line %d: expected EOF but got %s", p.currentToken.Line, p.currentToken.Type)
	}

	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenLParen:
		p.nextToken()
		list := &Node{Type: NodeList, Line: tok.Line}
		for p.currentToken.Type != tokenRParen {
			if p.currentToken.Type == tokenEOF {
				return nil, fmt.Errorf("line %d: unclosed list", tok.Line)
			}
			item, err := p.parseDatum()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
		p.nextToken()
		return list, nil
	case tokenRParen:
		return nil, fmt.Errorf("line %d: unexpected ')'", tok.Line)
	case tokenAtom:
		p.nextToken()
		if isInteger(tok.Text) {
			return &Node{Type: NodeInteger, Text: tok.Text, Line: tok.Line}, nil
		}
		return &Node{Type: NodeSymbol, Text: tok.Text, Line: tok.Line}, nil
	}
	return nil, fmt.Errorf("line %d: unexpected end of input", tok.Line)
}

func isInteger(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
