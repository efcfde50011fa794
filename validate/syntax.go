package validate

import (
	"context"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/calebcgates/llmstruct"
)

// validateCode runs a syntax check for languages with a grammar available
// and a non-emptiness check for the rest. Syntax failures are decode
// errors; the corrector asks the model for a fix rather than repairing
// code heuristically.
func (v *Validator) validateCode(
	ctx context.Context,
	rendered string,
	format llmstruct.Format,
) llmstruct.ValidationResult {
	if strings.TrimSpace(rendered) == "" {
		return llmstruct.Invalid(llmstruct.ErrorParseFailure, "output contains no code")
	}

	switch format {
	case llmstruct.FormatPython:
		return treeSitterCheck(ctx, rendered, python.GetLanguage(), format)
	case llmstruct.FormatJavaScript, llmstruct.FormatTypeScript:
		// The JavaScript grammar covers the TypeScript subset models
		// typically produce; a dedicated TS grammar is not worth the cgo
		// surface.
		return treeSitterCheck(ctx, rendered, javascript.GetLanguage(), format)
	case llmstruct.FormatGo:
		return goSyntaxCheck(rendered)
	}
	return llmstruct.Valid()
}

// treeSitterCheck parses the source with a tree-sitter grammar and reports
// the first error node, if any.
func treeSitterCheck(
	ctx context.Context,
	src string,
	lang *sitter.Language,
	format llmstruct.Format,
) llmstruct.ValidationResult {
	p := sitter.NewParser()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(ctx, nil, []byte(src))
	if err != nil {
		return llmstruct.Invalid(llmstruct.ErrorDecode,
			fmt.Sprintf("%s parse failed: %v", format, err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return llmstruct.Valid()
	}

	vr := llmstruct.Invalid(llmstruct.ErrorDecode,
		fmt.Sprintf("%s source contains a syntax error", format))
	if node := firstErrorNode(root); node != nil {
		point := node.StartPoint()
		vr.Pos = &llmstruct.Position{
			Line:   int(point.Row) + 1,
			Column: int(point.Column) + 1,
		}
		vr.Message = fmt.Sprintf("%s syntax error at line %d, column %d",
			format, vr.Pos.Line, vr.Pos.Column)
	}
	return vr
}

// firstErrorNode walks the tree depth-first for the first ERROR or missing
// node.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// goSyntaxCheck parses the source as a Go file, prefixing a package clause
// when the snippet lacks one.
func goSyntaxCheck(src string) llmstruct.ValidationResult {
	if !strings.Contains(src, "package ") {
		src = "package main\n\n" + src
	}

	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "output.go", src, 0)
	if err == nil {
		return llmstruct.Valid()
	}

	vr := llmstruct.Invalid(llmstruct.ErrorDecode, err.Error())
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		first := list[0]
		vr.Pos = &llmstruct.Position{
			Line:   first.Pos.Line,
			Column: first.Pos.Column,
		}
		vr.Message = first.Error()
	}
	return vr
}
