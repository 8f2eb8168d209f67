// Package stm provides the public API for the Pure-Go software
// transactional memory runtime.
//
// The runtime lets a block of code execute speculatively: all stores made
// inside the block are buffered in a per-attempt write set, and only reach
// live memory if no conflicting concurrent modification occurred, otherwise
// the block is retried. Transactional words are plain uint64 variables
// addressed through [AddrOf].
//
// # Quick Start
//
//	package main
//
//	import (
//		"fmt"
//
//		"github.com/kolkov/gostm/stm"
//	)
//
//	var counter uint64
//
//	func main() {
//		addr := stm.AddrOf(&counter)
//
//		err := stm.Atomic(func(tx *stm.Tx) error {
//			tx.Store(addr, tx.Load(addr)+1)
//			return nil
//		})
//		if err != nil {
//			panic(err)
//		}
//		fmt.Println(counter) // 1
//	}
//
// The stmify tool can insert the Load/Store calls automatically for
// package-level variables marked //stm:shared:
//
//	$ stmify instrument -o build main.go
//
// # API Overview
//
// The package provides:
//   - Transactional execution: [Atomic], [Tx.Load], [Tx.Store]
//   - Addressing: [AddrOf]
//   - Runtime statistics: [ReadStats]
//   - Version information: [GetInfo], [Version]
//
// # Rules
//
// Words accessed transactionally must be heap or package-level uint64
// variables that stay reachable while any transaction can touch them, and
// every access to them from transactional code must go through Load/Store.
// Non-transactional code may read them, but a concurrent plain write to a
// transactional word is a data race exactly as it would be without STM.
//
// A *Tx is only valid inside the Atomic callback that supplied it, and only
// on that goroutine. If the callback returns an error the attempt is
// abandoned without retry - live memory is untouched, so there is nothing to
// roll back.
package stm
