// Package instrument implements source-to-source STM instrumentation.
//
// The rewriter finds package-level uint64 variables annotated with the
// //stm:shared directive, generates a package-level transactional address
// for each, and rewrites every access to those words inside stm.Atomic
// closures into tx.Load / tx.Store calls.
//
// Example transformation:
//
//	// INPUT:
//	//stm:shared
//	var counter uint64
//
//	stm.Atomic(func(tx *stm.Tx) error {
//		counter = counter + 1
//		return nil
//	})
//
//	// OUTPUT (plus a generated address variable):
//	stm.Atomic(func(tx *stm.Tx) error {
//		tx.Store(stmAddr_counter, tx.Load(stmAddr_counter)+1)
//		return nil
//	})
//
//	var stmAddr_counter = stm.AddrOf(&counter)
//
// Known v0 limitations, reported as errors where detectable: shared words
// must be plain uint64; multi-assignments involving a shared word must be
// split; shared names must not be shadowed inside an atomic block; and
// non-Atomic closures inside an atomic block are not descended into.
package instrument

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
)

const (
	// StmPackageImportPath is the runtime package instrumented code calls.
	StmPackageImportPath = "github.com/kolkov/gostm/stm"

	// stmPackageName is the identifier atomic blocks are recognized by:
	// calls of the form stm.Atomic(func(tx *stm.Tx) error { ... }).
	stmPackageName = "stm"

	// sharedDirective marks a package-level uint64 as transactional.
	sharedDirective = "stm:shared"

	// addrVarPrefix prefixes the generated package-level address variables.
	addrVarPrefix = "stmAddr_"
)

// Stats describes what one file's instrumentation did.
type Stats struct {
	SharedWords int // annotated words found
	Loads       int // tx.Load calls inserted
	Stores      int // tx.Store calls inserted
}

// Result holds the instrumented source and its statistics.
type Result struct {
	Code  string
	Stats Stats
}

// InstrumentFile rewrites one Go source file.
//
// src follows go/parser conventions: nil reads from filename, otherwise it
// may be a string, []byte, or io.Reader. The file is parsed, shared words
// are collected, every stm.Atomic closure is rewritten, generated address
// variables are appended, and the modified AST is printed back to source.
//
// A file with no //stm:shared annotations is returned unchanged (modulo
// go/printer formatting) with zero stats.
func InstrumentFile(filename string, src any) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}

	shared, err := collectSharedWords(fset, file)
	if err != nil {
		return nil, err
	}

	stats := Stats{SharedWords: len(shared.order)}
	if len(shared.order) > 0 {
		rw := &rewriter{fset: fset, shared: shared.byName, stats: &stats}
		if err := rw.rewriteAtomicBlocks(file); err != nil {
			return nil, err
		}
		appendAddrDecls(file, shared)
		ensureRuntimeImport(file)
	}

	var buf bytes.Buffer
	cfg := &printer.Config{
		Mode:     printer.UseSpaces | printer.TabIndent,
		Tabwidth: 8,
	}
	if err := cfg.Fprint(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	return &Result{Code: buf.String(), Stats: stats}, nil
}

// ensureRuntimeImport adds the runtime import when the file does not have
// it yet. The generated address variables reference stm.AddrOf, so any file
// with shared words needs the import even if its own code never mentioned
// the runtime.
func ensureRuntimeImport(file *ast.File) {
	quoted := fmt.Sprintf("%q", StmPackageImportPath)
	for _, imp := range file.Imports {
		if imp.Path.Value == quoted {
			return
		}
	}

	spec := &ast.ImportSpec{
		Path: &ast.BasicLit{Kind: token.STRING, Value: quoted},
	}
	file.Imports = append(file.Imports, spec)

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if ok && genDecl.Tok == token.IMPORT {
			genDecl.Specs = append(genDecl.Specs, spec)
			if !genDecl.Lparen.IsValid() {
				genDecl.Lparen = genDecl.TokPos
				genDecl.Rparen = genDecl.End()
			}
			return
		}
	}

	importDecl := &ast.GenDecl{Tok: token.IMPORT, Specs: []ast.Spec{spec}}
	file.Decls = append([]ast.Decl{importDecl}, file.Decls...)
}

// sharedWords is the collected annotation set: lookup by name plus source
// order for deterministic generated declarations.
type sharedWords struct {
	byName map[string]string // word name -> generated address variable name
	order  []string          // word names in source order
}

// collectSharedWords scans package-level var declarations for the
// //stm:shared directive. The directive may sit on the var group or on an
// individual spec; every name in an annotated spec becomes transactional.
func collectSharedWords(fset *token.FileSet, file *ast.File) (*sharedWords, error) {
	shared := &sharedWords{byName: make(map[string]string)}

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.VAR {
			continue
		}
		groupAnnotated := hasDirective(genDecl.Doc)

		for _, spec := range genDecl.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			if !groupAnnotated && !hasDirective(vs.Doc) && !hasDirective(vs.Comment) {
				continue
			}

			if ident, ok := vs.Type.(*ast.Ident); !ok || ident.Name != "uint64" {
				return nil, errAtSuggest(fset, vs.Pos(),
					fmt.Sprintf("shared word %q is not a plain uint64", vs.Names[0].Name),
					"declare transactional words as uint64; wider types are not supported")
			}

			for _, name := range vs.Names {
				shared.byName[name.Name] = addrVarPrefix + name.Name
				shared.order = append(shared.order, name.Name)
			}
		}
	}
	return shared, nil
}

// hasDirective reports whether a comment group contains //stm:shared.
func hasDirective(cg *ast.CommentGroup) bool {
	if cg == nil {
		return false
	}
	for _, c := range cg.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if text == sharedDirective {
			return true
		}
	}
	return false
}

// appendAddrDecls appends one generated address variable per shared word:
//
//	var stmAddr_counter = stm.AddrOf(&counter)
//
// Package-level initialization order resolves the dependency on the word
// itself regardless of declaration position.
func appendAddrDecls(file *ast.File, shared *sharedWords) {
	for _, name := range shared.order {
		decl := &ast.GenDecl{
			Tok: token.VAR,
			Specs: []ast.Spec{
				&ast.ValueSpec{
					Names: []*ast.Ident{ast.NewIdent(shared.byName[name])},
					Values: []ast.Expr{
						&ast.CallExpr{
							Fun: &ast.SelectorExpr{
								X:   ast.NewIdent(stmPackageName),
								Sel: ast.NewIdent("AddrOf"),
							},
							Args: []ast.Expr{
								&ast.UnaryExpr{Op: token.AND, X: ast.NewIdent(name)},
							},
						},
					},
				},
			},
		}
		file.Decls = append(file.Decls, decl)
	}
}
