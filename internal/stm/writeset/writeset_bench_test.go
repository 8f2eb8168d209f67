package writeset

import "testing"

// BenchmarkInsertDistinct measures the append path: every insert is a fresh
// address, amortizing dense growth and index rebuilds over the run.
func BenchmarkInsertDistinct(b *testing.B) {
	const n = 1024
	words, addrs := wordArena(n)
	_ = words

	ws := New(n)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if i%n == 0 {
			ws.Reset()
		}
		ws.Insert(addrs[i%n], uint64(i))
	}
}

// BenchmarkInsertCoalesce measures the write-after-write path: every insert
// after the first hits the existing entry and updates it in place.
func BenchmarkInsertCoalesce(b *testing.B) {
	words, addrs := wordArena(1)
	_ = words

	ws := New(4)
	ws.Insert(addrs[0], 0)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ws.Insert(addrs[0], uint64(i))
	}
}

// BenchmarkFindHit measures a lookup that resolves to a buffered entry.
func BenchmarkFindHit(b *testing.B) {
	const n = 1024
	words, addrs := wordArena(n)
	_ = words

	ws := New(n)
	for i, addr := range addrs {
		ws.Insert(addr, uint64(i))
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ws.Find(addrs[i%n])
	}
}

// BenchmarkFindMiss measures a lookup for a never-buffered address - the
// common case for transactional reads in mostly-read workloads.
func BenchmarkFindMiss(b *testing.B) {
	const n = 1024
	words, addrs := wordArena(n + 1)
	_ = words

	ws := New(n)
	for i := 0; i < n; i++ {
		ws.Insert(addrs[i], uint64(i))
	}
	miss := addrs[n]
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ws.Find(miss)
	}
}

// BenchmarkReset measures the O(1) between-attempts clear on a populated set.
func BenchmarkReset(b *testing.B) {
	const n = 1024
	words, addrs := wordArena(n)
	_ = words

	ws := New(n)
	for i, addr := range addrs {
		ws.Insert(addr, uint64(i))
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ws.Reset()
	}
}

// BenchmarkValidateWriteback measures a full commit pass over a populated
// set: one validation sweep followed by one writeback sweep.
func BenchmarkValidateWriteback(b *testing.B) {
	const n = 256
	words, addrs := wordArena(n)
	_ = words

	ws := New(n)
	for i, addr := range addrs {
		ws.Insert(addr, uint64(i))
	}
	// Make validation pass so the sweep never short-circuits.
	ws.Writeback()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if !ws.Validate() {
			b.Fatal("validation failed unexpectedly")
		}
		ws.Writeback()
	}
}
