package instrument

import (
	"fmt"
	"go/ast"
	"go/token"
)

// assignOps maps compound assignment tokens to the underlying binary
// operator, so `x += e` rewrites to tx.Store(addr, tx.Load(addr)+e).
var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN:     token.ADD,
	token.SUB_ASSIGN:     token.SUB,
	token.MUL_ASSIGN:     token.MUL,
	token.QUO_ASSIGN:     token.QUO,
	token.REM_ASSIGN:     token.REM,
	token.AND_ASSIGN:     token.AND,
	token.OR_ASSIGN:      token.OR,
	token.XOR_ASSIGN:     token.XOR,
	token.SHL_ASSIGN:     token.SHL,
	token.SHR_ASSIGN:     token.SHR,
	token.AND_NOT_ASSIGN: token.AND_NOT,
}

// rewriter rewrites shared-word accesses inside one file's atomic blocks.
// txName is set per closure while its body is being processed.
type rewriter struct {
	fset   *token.FileSet
	shared map[string]string // word name -> address variable name
	txName string
	stats  *Stats
}

// rewriteAtomicBlocks finds every stm.Atomic(func(tx *stm.Tx) error {...})
// call in the file and rewrites the closure body. Nested atomic calls are
// collected by the same walk and rewritten against their own transaction
// parameter.
func (rw *rewriter) rewriteAtomicBlocks(file *ast.File) error {
	type block struct {
		lit    *ast.FuncLit
		txName string
	}
	var blocks []block
	var walkErr error

	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		lit, ok := atomicClosure(call)
		if !ok {
			return true
		}
		name, err := txParamName(rw.fset, lit)
		if err != nil {
			walkErr = err
			return false
		}
		blocks = append(blocks, block{lit: lit, txName: name})
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	for _, b := range blocks {
		rw.txName = b.txName
		if err := rw.rewriteBlock(b.lit.Body); err != nil {
			return err
		}
	}
	return nil
}

// atomicClosure matches stm.Atomic(<func literal>) and returns the literal.
func atomicClosure(call *ast.CallExpr) (*ast.FuncLit, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Atomic" {
		return nil, false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != stmPackageName {
		return nil, false
	}
	if len(call.Args) != 1 {
		return nil, false
	}
	lit, ok := call.Args[0].(*ast.FuncLit)
	return lit, ok
}

// txParamName extracts the transaction parameter name from an atomic
// closure's signature.
func txParamName(fset *token.FileSet, lit *ast.FuncLit) (string, error) {
	params := lit.Type.Params
	if params == nil || len(params.List) != 1 || len(params.List[0].Names) != 1 {
		return "", errAtSuggest(fset, lit.Pos(),
			"atomic closure must take exactly one named transaction parameter",
			"use the form stm.Atomic(func(tx *stm.Tx) error { ... })")
	}
	name := params.List[0].Names[0].Name
	if name == "_" {
		return "", errAtSuggest(fset, lit.Pos(),
			"atomic closure discards its transaction parameter",
			"name the parameter (e.g. tx) so shared-word accesses can be rewritten")
	}
	return name, nil
}

// rewriteBlock rewrites every statement of a block in place.
func (rw *rewriter) rewriteBlock(block *ast.BlockStmt) error {
	for i, stmt := range block.List {
		replaced, err := rw.rewriteStmt(stmt)
		if err != nil {
			return err
		}
		block.List[i] = replaced
	}
	return nil
}

// rewriteStmt rewrites one statement, returning its replacement. Statements
// that carry no shared-word access come back unchanged.
func (rw *rewriter) rewriteStmt(stmt ast.Stmt) (ast.Stmt, error) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		return s, rw.rewriteBlock(s)

	case *ast.ExprStmt:
		s.X = rw.rewriteExpr(s.X)
		return s, nil

	case *ast.ReturnStmt:
		for i := range s.Results {
			s.Results[i] = rw.rewriteExpr(s.Results[i])
		}
		return s, nil

	case *ast.AssignStmt:
		return rw.rewriteAssign(s)

	case *ast.IncDecStmt:
		return rw.rewriteIncDec(s)

	case *ast.IfStmt:
		if s.Init != nil {
			init, err := rw.rewriteStmt(s.Init)
			if err != nil {
				return nil, err
			}
			s.Init = init
		}
		s.Cond = rw.rewriteExpr(s.Cond)
		if err := rw.rewriteBlock(s.Body); err != nil {
			return nil, err
		}
		if s.Else != nil {
			els, err := rw.rewriteStmt(s.Else)
			if err != nil {
				return nil, err
			}
			s.Else = els
		}
		return s, nil

	case *ast.ForStmt:
		if s.Init != nil {
			init, err := rw.rewriteStmt(s.Init)
			if err != nil {
				return nil, err
			}
			s.Init = init
		}
		if s.Cond != nil {
			s.Cond = rw.rewriteExpr(s.Cond)
		}
		if s.Post != nil {
			post, err := rw.rewriteStmt(s.Post)
			if err != nil {
				return nil, err
			}
			s.Post = post
		}
		return s, rw.rewriteBlock(s.Body)

	case *ast.RangeStmt:
		s.X = rw.rewriteExpr(s.X)
		return s, rw.rewriteBlock(s.Body)

	case *ast.SwitchStmt:
		if s.Init != nil {
			init, err := rw.rewriteStmt(s.Init)
			if err != nil {
				return nil, err
			}
			s.Init = init
		}
		if s.Tag != nil {
			s.Tag = rw.rewriteExpr(s.Tag)
		}
		for _, clause := range s.Body.List {
			cc, ok := clause.(*ast.CaseClause)
			if !ok {
				continue
			}
			for i := range cc.List {
				cc.List[i] = rw.rewriteExpr(cc.List[i])
			}
			for i, body := range cc.Body {
				replaced, err := rw.rewriteStmt(body)
				if err != nil {
					return nil, err
				}
				cc.Body[i] = replaced
			}
		}
		return s, nil

	case *ast.DeclStmt:
		if err := rw.checkShadowingDecl(s); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return stmt, nil
	}
}

// rewriteAssign handles plain, compound, and define assignments.
func (rw *rewriter) rewriteAssign(s *ast.AssignStmt) (ast.Stmt, error) {
	// Defines never target shared words, but they can shadow them, which
	// would silently break every later rewrite in this block.
	if s.Tok == token.DEFINE {
		for _, lhs := range s.Lhs {
			if ident, ok := lhs.(*ast.Ident); ok {
				if _, isShared := rw.shared[ident.Name]; isShared {
					return nil, errAtSuggest(rw.fset, ident.Pos(),
						fmt.Sprintf("local variable shadows shared word %q inside an atomic block", ident.Name),
						"rename the local variable; shadowed shared words cannot be rewritten")
				}
			}
		}
		for i := range s.Rhs {
			s.Rhs[i] = rw.rewriteExpr(s.Rhs[i])
		}
		return s, nil
	}

	// Compound assignment to a shared word: x op= e.
	if op, compound := assignOps[s.Tok]; compound {
		if ident, ok := s.Lhs[0].(*ast.Ident); ok {
			if addrName, isShared := rw.shared[ident.Name]; isShared {
				rhs := &ast.BinaryExpr{
					X:  rw.loadExpr(addrName),
					Op: op,
					Y:  rw.rewriteExpr(s.Rhs[0]),
				}
				return rw.storeStmt(addrName, rhs), nil
			}
		}
		s.Rhs[0] = rw.rewriteExpr(s.Rhs[0])
		return s, nil
	}

	// Plain assignment. Single-target stores to shared words rewrite to
	// tx.Store; multi-assignments involving a shared word have no single
	// statement equivalent, so they are rejected rather than half-rewritten.
	sharedTargets := 0
	for _, lhs := range s.Lhs {
		if ident, ok := lhs.(*ast.Ident); ok {
			if _, isShared := rw.shared[ident.Name]; isShared {
				sharedTargets++
			}
		}
	}
	if sharedTargets > 0 && len(s.Lhs) > 1 {
		return nil, errAtSuggest(rw.fset, s.Pos(),
			"cannot rewrite multi-assignment involving a shared word",
			"split the assignment so each shared word is assigned on its own line")
	}

	if sharedTargets == 1 {
		ident := s.Lhs[0].(*ast.Ident)
		return rw.storeStmt(rw.shared[ident.Name], rw.rewriteExpr(s.Rhs[0])), nil
	}

	for i := range s.Lhs {
		s.Lhs[i] = rw.rewriteExpr(s.Lhs[i])
	}
	for i := range s.Rhs {
		s.Rhs[i] = rw.rewriteExpr(s.Rhs[i])
	}
	return s, nil
}

// rewriteIncDec turns x++ / x-- on a shared word into a store of the
// loaded value plus or minus one.
func (rw *rewriter) rewriteIncDec(s *ast.IncDecStmt) (ast.Stmt, error) {
	ident, ok := s.X.(*ast.Ident)
	if !ok {
		return s, nil
	}
	addrName, isShared := rw.shared[ident.Name]
	if !isShared {
		return s, nil
	}

	op := token.ADD
	if s.Tok == token.DEC {
		op = token.SUB
	}
	rhs := &ast.BinaryExpr{
		X:  rw.loadExpr(addrName),
		Op: op,
		Y:  &ast.BasicLit{Kind: token.INT, Value: "1"},
	}
	return rw.storeStmt(addrName, rhs), nil
}

// rewriteExpr rewrites shared-word reads inside an expression. Function
// literals are deliberately not descended into: a non-atomic closure may
// escape the transaction, and nested atomic closures are rewritten against
// their own transaction parameter by the top-level walk.
func (rw *rewriter) rewriteExpr(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.Ident:
		if addrName, isShared := rw.shared[e.Name]; isShared {
			return rw.loadExpr(addrName)
		}
		return e

	case *ast.ParenExpr:
		e.X = rw.rewriteExpr(e.X)
		return e

	case *ast.UnaryExpr:
		// Taking the address of a shared word inside a transaction would
		// bypass the write set; leave &x alone so the compiler's type check
		// surfaces the misuse instead of silently loading.
		if e.Op == token.AND {
			return e
		}
		e.X = rw.rewriteExpr(e.X)
		return e

	case *ast.BinaryExpr:
		e.X = rw.rewriteExpr(e.X)
		e.Y = rw.rewriteExpr(e.Y)
		return e

	case *ast.CallExpr:
		for i := range e.Args {
			e.Args[i] = rw.rewriteExpr(e.Args[i])
		}
		return e

	case *ast.IndexExpr:
		e.X = rw.rewriteExpr(e.X)
		e.Index = rw.rewriteExpr(e.Index)
		return e

	case *ast.SliceExpr:
		e.X = rw.rewriteExpr(e.X)
		if e.Low != nil {
			e.Low = rw.rewriteExpr(e.Low)
		}
		if e.High != nil {
			e.High = rw.rewriteExpr(e.High)
		}
		if e.Max != nil {
			e.Max = rw.rewriteExpr(e.Max)
		}
		return e

	case *ast.CompositeLit:
		for i := range e.Elts {
			e.Elts[i] = rw.rewriteExpr(e.Elts[i])
		}
		return e

	case *ast.KeyValueExpr:
		e.Key = rw.rewriteExpr(e.Key)
		e.Value = rw.rewriteExpr(e.Value)
		return e

	case *ast.StarExpr:
		e.X = rw.rewriteExpr(e.X)
		return e

	case *ast.SelectorExpr:
		// Only the receiver side: a field or method name can legitimately
		// collide with a shared word's name without referring to it.
		e.X = rw.rewriteExpr(e.X)
		return e

	case *ast.TypeAssertExpr:
		e.X = rw.rewriteExpr(e.X)
		return e

	default:
		return expr
	}
}

// checkShadowingDecl rejects block-local declarations that shadow a shared
// word.
func (rw *rewriter) checkShadowingDecl(s *ast.DeclStmt) error {
	genDecl, ok := s.Decl.(*ast.GenDecl)
	if !ok {
		return nil
	}
	for _, spec := range genDecl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for _, name := range vs.Names {
			if _, isShared := rw.shared[name.Name]; isShared {
				return errAtSuggest(rw.fset, name.Pos(),
					fmt.Sprintf("local declaration shadows shared word %q inside an atomic block", name.Name),
					"rename the local variable; shadowed shared words cannot be rewritten")
			}
		}
	}
	return nil
}

// loadExpr builds tx.Load(addrVar).
func (rw *rewriter) loadExpr(addrName string) ast.Expr {
	rw.stats.Loads++
	return &ast.CallExpr{
		Fun: &ast.SelectorExpr{
			X:   ast.NewIdent(rw.txName),
			Sel: ast.NewIdent("Load"),
		},
		Args: []ast.Expr{ast.NewIdent(addrName)},
	}
}

// storeStmt builds tx.Store(addrVar, value) as a statement.
func (rw *rewriter) storeStmt(addrName string, value ast.Expr) ast.Stmt {
	rw.stats.Stores++
	return &ast.ExprStmt{
		X: &ast.CallExpr{
			Fun: &ast.SelectorExpr{
				X:   ast.NewIdent(rw.txName),
				Sel: ast.NewIdent("Store"),
			},
			Args: []ast.Expr{ast.NewIdent(addrName), value},
		},
	}
}
