// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package poppy

import (
	"math/rand/v2"
	"testing"
)

func TestFenwickBuildReset(t *testing.T) {
	raw := []uint64{0, 0, 1, 0, 3, 5}
	want := append([]uint64(nil), raw...)

	built := append([]uint64(nil), raw...)
	fenwickBuildU64(built)
	fenwickResetU64(built)

	for i := range want {
		if built[i] != want[i] {
			t.Errorf("reset(build(raw))[%d] = %d, want %d", i, built[i], want[i])
		}
	}
}

func TestFenwickPrefixSum(t *testing.T) {
	// Array [0, 1, 0, 3, 5]: a[0] is the sentinel, raw counts 1, 0, 3, 5
	// at Fenwick positions 1..4.
	a := []uint64{0, 1, 0, 3, 5}
	fenwickBuildU64(a)

	want := []uint64{0, 1, 1, 4, 9}
	for i, w := range want {
		if got := fenwickSumU64(a, i); got != w {
			t.Errorf("prefixSum(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestFenwickLowerBound(t *testing.T) {
	a := []uint64{0, 1, 0, 3, 5}
	fenwickBuildU64(a)

	tests := []struct {
		w    uint64
		want int
	}{
		{1, 1},
		{4, 3},
		{5, 4},
	}
	for _, tt := range tests {
		if got := fenwickLowerBoundU64(a, tt.w); got != tt.want {
			t.Errorf("lowerBound(%d) = %d, want %d", tt.w, got, tt.want)
		}
	}
}

func TestFenwickIncrDecr(t *testing.T) {
	raw := make([]uint64, 33)
	for i := range raw {
		if i > 0 {
			raw[i] = uint64(rand.IntN(5))
		}
	}

	prefix := func(n int) uint64 {
		var sum uint64
		for i := 1; i <= n; i++ {
			sum += raw[i]
		}
		return sum
	}

	a := append([]uint64(nil), raw...)
	fenwickBuildU64(a)

	for i := 0; i < len(a); i++ {
		if got, exp := fenwickSumU64(a, i), prefix(i); got != exp {
			t.Fatalf("prefixSum(%d) before mutation = %d, want %d", i, got, exp)
		}
	}

	fenwickIncrU64(a, 10, 7)
	raw[11] += 7
	for i := 0; i < len(a); i++ {
		if got, exp := fenwickSumU64(a, i), prefix(i); got != exp {
			t.Errorf("prefixSum(%d) after incr = %d, want %d", i, got, exp)
		}
	}

	fenwickDecrU64(a, 10, 7)
	raw[11] -= 7
	for i := 0; i < len(a); i++ {
		if got, exp := fenwickSumU64(a, i), prefix(i); got != exp {
			t.Errorf("prefixSum(%d) after decr = %d, want %d", i, got, exp)
		}
	}
}

func TestFenwickComplementLowerBound(t *testing.T) {
	const maxPerUnit = 10
	// Raw counts (index 0 unused): units hold 10, 10, 3, 10, 0.
	raw := []uint64{0, 10, 10, 3, 10, 0}
	a := append([]uint64(nil), raw...)
	fenwickBuildU64(a)

	// Cumulative zero-counts after units 1..i, i = 0..5: 0, 0, 0, 7, 7, 17.
	wantZeros := []uint64{0, 0, 0, 7, 7, 17}
	for i, want := range wantZeros {
		got := uint64(i)*maxPerUnit - fenwickSumU64(a, i)
		if got != want {
			t.Fatalf("sanity: cumulative zeros at %d = %d, want %d", i, got, want)
		}
	}

	tests := []struct {
		w    uint64
		want int
	}{
		{1, 3}, // first zero falls in unit 3 (1-indexed)
		{7, 3}, // last zero of unit 3
		{8, 5}, // next zero falls in unit 5
	}
	for _, tt := range tests {
		if got := fenwickComplementLowerBoundU64(a, maxPerUnit, tt.w); got != tt.want {
			t.Errorf("complementLowerBound(%d) = %d, want %d", tt.w, got, tt.want)
		}
	}
}

func TestFenwickL1L2Matches64(t *testing.T) {
	raw := make([]uint64, 17)
	for i := range raw {
		if i > 0 {
			raw[i] = uint64(rand.IntN(100))
		}
	}

	ref := append([]uint64(nil), raw...)
	fenwickBuildU64(ref)

	packed := make([]L1L2, len(raw))
	for i, v := range raw {
		packed[i] = mergeL1L2(v, 0, 0, 0)
	}
	fenwickBuildL1L2(packed)

	for i := range ref {
		if got := fenwickSumL1L2(packed, i); got != fenwickSumU64(ref, i) {
			t.Errorf("fenwickSumL1L2(%d) = %d, want %d", i, got, fenwickSumU64(ref, i))
		}
	}

	fenwickIncrU64(ref, 5, 4)
	fenwickIncrL1L2(packed, 5, 4)
	for i := range ref {
		if got := fenwickSumL1L2(packed, i); got != fenwickSumU64(ref, i) {
			t.Errorf("after incr: fenwickSumL1L2(%d) = %d, want %d", i, got, fenwickSumU64(ref, i))
		}
	}
}

// TestFenwickBuildL1L2PreservesL2Lanes catches the bug where building
// the Fenwick tree adds a sibling's whole L1L2 word (l1 AND l2 lanes)
// into its parent instead of only the l1 lane. A leaf with non-zero
// l2_0/l2_1/l2_2 that also happens to be a write target during build
// (e.g. index 2, the parent of leaf 1) must keep its own l2 lanes
// exactly as set, regardless of what l1 its children contribute.
func TestFenwickBuildL1L2PreservesL2Lanes(t *testing.T) {
	raw := make([]L1L2, 9) // indices 0..8, sentinel at 0
	wantL2 := make([][3]uint64, len(raw))
	for i := 1; i < len(raw); i++ {
		l1 := uint64(i * 10)
		l2_0, l2_1, l2_2 := uint64(i), uint64(i+100), uint64(i+200)
		raw[i] = mergeL1L2(l1, l2_0, l2_1, l2_2)
		wantL2[i] = [3]uint64{l2_0, l2_1, l2_2}
	}

	built := append([]L1L2(nil), raw...)
	fenwickBuildL1L2(built)

	for i := 1; i < len(built); i++ {
		if got := built[i].l2_0(); got != wantL2[i][0] {
			t.Errorf("built[%d].l2_0() = %d, want %d (corrupted by a sibling's build contribution)", i, got, wantL2[i][0])
		}
		if got := built[i].l2_1(); got != wantL2[i][1] {
			t.Errorf("built[%d].l2_1() = %d, want %d", i, got, wantL2[i][1])
		}
		if got := built[i].l2_2(); got != wantL2[i][2] {
			t.Errorf("built[%d].l2_2() = %d, want %d", i, got, wantL2[i][2])
		}
	}

	// Index 2 receives index 1's contribution during build (1+lsb(1)=2):
	// l1 must be the Fenwick sum, but l2 must stay index 2's own.
	if want := raw[1].l1() + raw[2].l1(); built[2].l1() != want {
		t.Errorf("built[2].l1() = %d, want %d", built[2].l1(), want)
	}
}

func TestLsbMsb(t *testing.T) {
	if lsb(0) != 0 {
		t.Errorf("lsb(0) = %d, want 0", lsb(0))
	}
	if got := lsb(12); got != 4 {
		t.Errorf("lsb(12) = %d, want 4", got)
	}
	if got := msb(0); got != 0 {
		t.Errorf("msb(0) = %d, want 0", got)
	}
	if got := msb(1); got != 1 {
		t.Errorf("msb(1) = %d, want 1", got)
	}
	if got := msb(17); got != 16 {
		t.Errorf("msb(17) = %d, want 16", got)
	}
}
