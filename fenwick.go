// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package poppy

import "math/bits"

// lsb returns the value of the lowest set bit of i, or 0 if i == 0.
func lsb(i int) int {
	return i & (-i)
}

// msb returns the largest power of two <= i, or 0 if i == 0.
func msb(i int) int {
	if i == 0 {
		return 0
	}
	return 1 << (bits.Len(uint(i)) - 1)
}

// The Fenwick arrays below are 1-indexed with a dummy entry at index 0
// (always 0), so a 0-based element index i is addressed at i+1.

// fenwickBuildU64 transforms the raw counts in a (a[0] is the unused
// sentinel) into a Fenwick tree in place: for i in 1..len(a), if
// j := i+lsb(i) is in range, a[j] += a[i].
func fenwickBuildU64(a []uint64) {
	for i := 1; i < len(a); i++ {
		if j := i + lsb(i); j < len(a) {
			a[j] += a[i]
		}
	}
}

// fenwickResetU64 inverts fenwickBuildU64, recovering the raw counts.
func fenwickResetU64(a []uint64) {
	for i := len(a) - 1; i >= 1; i-- {
		if j := i + lsb(i); j < len(a) {
			a[j] -= a[i]
		}
	}
}

// fenwickSumU64 returns the prefix sum over [0, i) of the raw counts,
// i.e. sum of a[1..=i] in the original (non-Fenwick) indexing.
func fenwickSumU64(a []uint64, i int) uint64 {
	var sum uint64
	for ; i > 0; i -= lsb(i) {
		sum += a[i]
	}
	return sum
}

// fenwickIncrU64 adds delta at logical index i (0-based element index;
// the function itself translates it to Fenwick position i+1).
func fenwickIncrU64(a []uint64, i int, delta uint64) {
	for i++; i < len(a); i += lsb(i) {
		a[i] += delta
	}
}

// fenwickDecrU64 is the symmetric operation of fenwickIncrU64.
func fenwickDecrU64(a []uint64, i int, delta uint64) {
	for i++; i < len(a); i += lsb(i) {
		a[i] -= delta
	}
}

// fenwickLowerBoundU64 returns the smallest i such that
// fenwickSumU64(a, i) >= w, descending powers of two from msb(nodes).
func fenwickLowerBoundU64(a []uint64, w uint64) int {
	nodes := len(a) - 1
	if w == 0 {
		return 0
	}

	i := 0
	for d := msb(nodes); d > 0; d >>= 1 {
		if j := i + d; j < len(a) && a[j] < w {
			w -= a[j]
			i = j
		}
	}
	return i + 1
}

// fenwickComplementLowerBoundU64 answers lowerBound against a virtual
// tree where every raw count c is read as d*maxPerUnit - c at a descent
// step of size d, without materializing a second tree.
func fenwickComplementLowerBoundU64(a []uint64, maxPerUnit uint64, w uint64) int {
	nodes := len(a) - 1
	if w == 0 {
		return 0
	}

	i := 0
	for d := msb(nodes); d > 0; d >>= 1 {
		if j := i + d; j < len(a) {
			v := uint64(d)*maxPerUnit - a[j]
			if v < w {
				w -= v
				i = j
			}
		}
	}
	return i + 1
}

// The L1L2 lane (LB) needs the identical algorithm shape but reads and
// writes through L1L2.l1() instead of a raw uint64. Build adds only a
// child's l1 value into the parent word, and incr/decr add delta to the
// whole word: l1 occupies the low 32 bits, so as long as l1 < 2^32 (the
// invariant maintained by the build and mutation paths) the addition
// never carries into the l2 lanes.

func fenwickBuildL1L2(a []L1L2) {
	for i := 1; i < len(a); i++ {
		if j := i + lsb(i); j < len(a) {
			a[j] = L1L2(uint64(a[j]) + a[i].l1())
		}
	}
}

func fenwickSumL1L2(a []L1L2, i int) uint64 {
	var sum uint64
	for ; i > 0; i -= lsb(i) {
		sum += a[i].l1()
	}
	return sum
}

func fenwickIncrL1L2(a []L1L2, i int, delta uint64) {
	for i++; i < len(a); i += lsb(i) {
		a[i] = L1L2(uint64(a[i]) + delta)
	}
}

func fenwickDecrL1L2(a []L1L2, i int, delta uint64) {
	for i++; i < len(a); i += lsb(i) {
		a[i] = L1L2(uint64(a[i]) - delta)
	}
}

func fenwickLowerBoundL1L2(a []L1L2, w uint64) int {
	nodes := len(a) - 1
	if w == 0 {
		return 0
	}

	i := 0
	for d := msb(nodes); d > 0; d >>= 1 {
		if j := i + d; j < len(a) && a[j].l1() < w {
			w -= a[j].l1()
			i = j
		}
	}
	return i + 1
}

func fenwickComplementLowerBoundL1L2(a []L1L2, maxPerUnit uint64, w uint64) int {
	nodes := len(a) - 1
	if w == 0 {
		return 0
	}

	i := 0
	for d := msb(nodes); d > 0; d >>= 1 {
		if j := i + d; j < len(a) {
			v := uint64(d)*maxPerUnit - a[j].l1()
			if v < w {
				w -= v
				i = j
			}
		}
	}
	return i + 1
}
