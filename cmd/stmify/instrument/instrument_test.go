package instrument

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustParse asserts the instrumented output is still valid Go.
func mustParse(t *testing.T, code string) {
	t.Helper()
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "instrumented.go", code, 0)
	require.NoError(t, err, "instrumented output must parse:\n%s", code)
}

const counterSrc = `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var counter uint64

func bump() error {
	return stm.Atomic(func(tx *stm.Tx) error {
		counter++
		return nil
	})
}
`

// TestInstrumentIncrement checks the canonical counter++ rewrite.
func TestInstrumentIncrement(t *testing.T) {
	result, err := InstrumentFile("counter.go", counterSrc)
	require.NoError(t, err)
	mustParse(t, result.Code)

	assert.Equal(t, 1, result.Stats.SharedWords)
	assert.Equal(t, 1, result.Stats.Loads)
	assert.Equal(t, 1, result.Stats.Stores)

	assert.Contains(t, result.Code, "tx.Store(stmAddr_counter", "increment must become a store")
	assert.Contains(t, result.Code, "tx.Load(stmAddr_counter)", "increment must load the old value")
	assert.Contains(t, result.Code, "stm.AddrOf(&counter)", "address variable must be generated")
	assert.NotContains(t, result.Code, "counter++", "original increment must be gone")
}

// TestInstrumentReadsAndWrites checks plain assignments, compound
// assignments, and reads in expressions.
func TestInstrumentReadsAndWrites(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var balance uint64

func spend(amount uint64) error {
	return stm.Atomic(func(tx *stm.Tx) error {
		if balance < amount {
			return nil
		}
		balance -= amount
		balance = balance + 0
		return nil
	})
}
`
	result, err := InstrumentFile("spend.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	// One load in the condition, one in the compound assignment, one on the
	// plain assignment's right-hand side.
	assert.Equal(t, 3, result.Stats.Loads)
	assert.Equal(t, 2, result.Stats.Stores)
	assert.Contains(t, result.Code, "tx.Load(stmAddr_balance) < amount")
	assert.NotContains(t, result.Code, "balance -=")
}

// TestInstrumentReadsInsideLiteralsAndSlices checks reads embedded in
// composite literals, map literal keys and values, and slice bounds are
// rewritten rather than silently skipped.
func TestInstrumentReadsInsideLiteralsAndSlices(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var cursor uint64

func snapshot(buf []uint64) error {
	return stm.Atomic(func(tx *stm.Tx) error {
		pair := []uint64{cursor, cursor + 1}
		window := buf[cursor:]
		marks := map[uint64]uint64{cursor: cursor}
		_, _, _ = pair, window, marks
		return nil
	})
}
`
	result, err := InstrumentFile("snapshot.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	// Two in the pair literal, one in the slice bound, two in the map entry.
	assert.Equal(t, 5, result.Stats.Loads)
	assert.Equal(t, 0, result.Stats.Stores)
	assert.Contains(t, result.Code, "buf[tx.Load(stmAddr_cursor):]")
	assert.NotContains(t, result.Code, "{cursor", "literal elements must be rewritten")
}

// TestInstrumentGroupDirective checks the directive on a var group marks
// every name in the group.
func TestInstrumentGroupDirective(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var (
	from uint64
	to   uint64
)

func move() error {
	return stm.Atomic(func(tx *stm.Tx) error {
		from = from - 1
		to = to + 1
		return nil
	})
}
`
	result, err := InstrumentFile("move.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	assert.Equal(t, 2, result.Stats.SharedWords)
	assert.Contains(t, result.Code, "stm.AddrOf(&from)")
	assert.Contains(t, result.Code, "stm.AddrOf(&to)")
}

// TestInstrumentUnannotatedFileUntouched checks a file with no directives
// reports zero stats and keeps its accesses.
func TestInstrumentUnannotatedFileUntouched(t *testing.T) {
	src := `package main

var plain uint64

func touch() {
	plain++
}
`
	result, err := InstrumentFile("plain.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	assert.Equal(t, Stats{}, result.Stats)
	assert.Contains(t, result.Code, "plain++")
	assert.NotContains(t, result.Code, "stmAddr_")
}

// TestInstrumentOutsideAtomicUntouched checks accesses outside atomic
// blocks are left alone even when the word is annotated.
func TestInstrumentOutsideAtomicUntouched(t *testing.T) {
	src := `package main

//stm:shared
var counter uint64

func peek() uint64 {
	return counter
}
`
	result, err := InstrumentFile("peek.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	assert.Equal(t, 0, result.Stats.Loads)
	assert.Contains(t, result.Code, "return counter")
	assert.Contains(t, result.Code, `"github.com/kolkov/gostm/stm"`,
		"runtime import must be added for the generated address variable")
}

// TestInstrumentRejectsNonUint64 checks annotated words must be uint64.
func TestInstrumentRejectsNonUint64(t *testing.T) {
	src := `package main

//stm:shared
var counter int32
`
	_, err := InstrumentFile("bad.go", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a plain uint64")
}

// TestInstrumentRejectsMultiAssign checks multi-assignments involving a
// shared word are refused with a positioned error.
func TestInstrumentRejectsMultiAssign(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var a uint64

func swap() error {
	return stm.Atomic(func(tx *stm.Tx) error {
		var b uint64
		a, b = b, a
		_ = b
		return nil
	})
}
`
	_, err := InstrumentFile("swap.go", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multi-assignment")

	var posErr *Error
	require.ErrorAs(t, err, &posErr)
	assert.Equal(t, "swap.go", posErr.File)
}

// TestInstrumentRejectsShadowing checks shadowed shared words are refused.
func TestInstrumentRejectsShadowing(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var counter uint64

func confuse() error {
	return stm.Atomic(func(tx *stm.Tx) error {
		counter := uint64(1)
		_ = counter
		return nil
	})
}
`
	_, err := InstrumentFile("shadow.go", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shadows shared word")
}

// TestInstrumentRejectsUnnamedTxParam checks the closure must name its
// transaction parameter.
func TestInstrumentRejectsUnnamedTxParam(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var counter uint64

func drop() error {
	return stm.Atomic(func(_ *stm.Tx) error {
		counter++
		return nil
	})
}
`
	_, err := InstrumentFile("drop.go", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discards its transaction parameter")
}

// TestInstrumentNestedAtomic checks nested atomic closures rewrite against
// their own transaction parameter.
func TestInstrumentNestedAtomic(t *testing.T) {
	src := `package main

import "github.com/kolkov/gostm/stm"

//stm:shared
var outerWord uint64

//stm:shared
var innerWord uint64

func nested() error {
	return stm.Atomic(func(tx *stm.Tx) error {
		outerWord++
		return stm.Atomic(func(inner *stm.Tx) error {
			innerWord++
			return nil
		})
	})
}
`
	result, err := InstrumentFile("nested.go", src)
	require.NoError(t, err)
	mustParse(t, result.Code)

	assert.Contains(t, result.Code, "tx.Store(stmAddr_outerWord")
	assert.Contains(t, result.Code, "inner.Store(stmAddr_innerWord")
}
