//go:build ignore
// +build ignore

// This tool measures how evenly the write set's multiplicative hash
// spreads realistic address patterns across index slots.
// Run with: go run tools/hash_distribution.go
//
// Addresses of words in live programs are not random: they cluster in
// arithmetic progressions (array elements 8 bytes apart, struct fields at
// fixed offsets from heap allocations). The fixed multiplier must still
// spread those patterns evenly after the downshift to the table width.
package main

import (
	"fmt"
	"math"
	"math/rand"
)

const hashMultiplier = 2654435769 // 2^32 / golden ratio, from CLRS

func hash(addr uintptr, shift uint32) uint32 {
	return uint32((uint64(addr)*hashMultiplier)&0xFFFFFFFF) >> shift
}

// chiSquared compares observed slot counts against a uniform expectation.
// Values near the slot count indicate a healthy spread.
func chiSquared(counts []int, samples int) float64 {
	expected := float64(samples) / float64(len(counts))
	var sum float64
	for _, c := range counts {
		d := float64(c) - expected
		sum += d * d / expected
	}
	return sum
}

func measure(name string, addrs []uintptr, slots int) {
	shift := uint32(32 - bits(slots))
	counts := make([]int, slots)
	for _, a := range addrs {
		counts[hash(a, shift)]++
	}

	maxCount := 0
	empty := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
		if c == 0 {
			empty++
		}
	}

	fmt.Printf("%-28s slots=%-6d chi2=%-10.1f max/slot=%-4d empty=%d\n",
		name, slots, chiSquared(counts, len(addrs)), maxCount, empty)
}

func bits(n int) int {
	return int(math.Log2(float64(n)))
}

func main() {
	const samples = 1 << 16
	base := uintptr(0xc000100000) // typical heap arena base

	sequential := make([]uintptr, samples)
	strided := make([]uintptr, samples)
	scattered := make([]uintptr, samples)
	rng := rand.New(rand.NewSource(1))
	for i := range sequential {
		sequential[i] = base + uintptr(i)*8
		strided[i] = base + uintptr(i)*64 // one word per cache line
		scattered[i] = base + uintptr(rng.Intn(1<<28))&^7
	}

	for _, slots := range []int{1 << 8, 1 << 12, 1 << 16} {
		measure("sequential words", sequential, slots)
		measure("cache-line strided", strided, slots)
		measure("scattered heap words", scattered, slots)
		fmt.Println()
	}

	fmt.Println("chi-squared near the slot count means a uniform spread.")
}
