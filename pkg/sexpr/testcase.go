package sexpr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputFence is the fence language holding a test's input tree.
const InputFence = "tree"

// AssertionType is the fence language of an expectation.
type AssertionType string

const (
	AssertionAsm    AssertionType = "asm"    // exact assembly output
	AssertionErrors AssertionType = "errors" // diagnostic kinds, one per line
	AssertionRun    AssertionType = "run"    // "name = value" lines after execution
)

// Assertion is one expectation fence.
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// TestCase is a "Test: <name>" heading with its fences.
type TestCase struct {
	Name       string
	Input      string
	Line       int
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and collects every test case.
// Fences outside a test case, unknown fence languages and tests without an
// input or an assertion are errors.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)
	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var current *TestCase

	flush := func() error {
		if current == nil {
			return nil
		}
		if current.Input == "" {
			return fmt.Errorf("line %d: test '%s' has no %s fence", current.Line, current.Name, InputFence)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("line %d: test '%s' has no assertions", current.Line, current.Name)
		}
		testCases = append(testCases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{
				Name: strings.TrimPrefix(heading, "Test: "),
				Line: lineNumber(n, source),
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := codeBlockContent(n, source)
			line := lineNumber(n, source)

			if current == nil {
				if language != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, language)
				}
				return ast.WalkContinue, nil
			}

			switch AssertionType(language) {
			case AssertionAsm, AssertionErrors, AssertionRun:
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(language),
					Content: content,
					Line:    line,
				})
				return ast.WalkContinue, nil
			}
			if language != InputFence {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, current.Name)
			}
			if current.Input != "" {
				return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences found in test '%s'", line, InputFence, current.Name)
			}
			current.Input = strings.TrimRight(content, "\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return testCases, nil
}

func headingText(n *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := child.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func codeBlockContent(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func lineNumber(n ast.Node, source []byte) int {
	if n.Lines().Len() == 0 {
		return 1
	}
	offset := n.Lines().At(0).Start
	return bytes.Count(source[:offset], []byte("\n")) + 1
}
