// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package poppy

import "fmt"

// The three-level counting hierarchy's fixed geometry.
const (
	basicBlock = 512        // smallest indexed region, in bits
	superBlock = 4 * basicBlock // 2048 bits = 4 basic blocks
	upperBlock = 1 << 32    // 2^32 bits; chosen so per-upper-block sums fit in 32 bits

	maxSBPerUB = upperBlock / superBlock // super blocks per upper block, 2^21
	lbStride   = maxSBPerUB + 1          // +1 for each sub-tree's Fenwick sentinel
)

// Poppy is a succinct rank/select index over a BitVec: a Fenwick tree
// of upper-block counts (ub), and a flat, stride-addressed array of
// per-upper-block Fenwick trees of super-block L1L2 words (lb).
//
// Both ub and lb are 1-indexed Fenwick arrays with a sentinel 0 entry,
// per spec.md §3's "Two-lane sentinels" note.
type Poppy struct {
	ub      []uint64
	lb      []L1L2
	storage *BitVec
}

// ceilDiv returns ceil(n/size) for size > 0.
func ceilDiv(n, size uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (n + size - 1) / size
}

func ubLen(n uint64) int {
	return int(ceilDiv(n, upperBlock)) + 1
}

func lbLen(n uint64) int {
	supers := ceilDiv(n, superBlock)
	if supers == 0 {
		return 1
	}
	q, r := supers/maxSBPerUB, supers%maxSBPerUB
	extra := uint64(0)
	if r > 0 {
		extra = 1
	}
	return int(supers + q + extra)
}

// New allocates an empty Poppy over an all-zero bit sequence of n bits.
func New(n uint64) *Poppy {
	return &Poppy{
		ub:      make([]uint64, ubLen(n)),
		lb:      make([]L1L2, lbLen(n)),
		storage: NewBitVec(n),
	}
}

// lbTree returns the Fenwick sub-array of lb belonging to upper block q.
func (p *Poppy) lbTree(q int) []L1L2 {
	s := q * lbStride
	e := s + lbStride
	if e > len(p.lb) {
		e = len(p.lb)
	}
	return p.lb[s:e]
}

// From builds a Poppy over the given storage in three passes: per-
// super-block L1/L2 counts, then a Fenwick transform of ub, then a
// Fenwick transform of each upper block's lb sub-array.
//
// Grounded on original_source/bits/bitvec/rank_aux.rs's build/
// Buckets<Uninit>->Buckets<Rho> staging, re-expressed as three plain
// loops instead of a type-state pipeline.
func From(storage *BitVec) *Poppy {
	n := storage.Bits()
	p := &Poppy{
		ub:      make([]uint64, ubLen(n)),
		lb:      make([]L1L2, lbLen(n)),
		storage: storage,
	}

	numSB := ceilDiv(n, superBlock)
	for i := uint64(0); i < numSB; i++ {
		q, r := i/maxSBPerUB, i%maxSBPerUB

		var bbs [4]uint64
		base := i * superBlock
		for k := 0; k < 4; k++ {
			lo := base + uint64(k)*basicBlock
			if lo >= n {
				break
			}
			hi := lo + basicBlock
			if hi > n {
				hi = n
			}
			bbs[k] = uint64(storage.Rank1(lo, hi))
		}
		sum := bbs[0] + bbs[1] + bbs[2] + bbs[3]

		p.ub[q+1] += sum
		p.lbTree(int(q))[r+1] = mergeL1L2(sum, bbs[0], bbs[1], bbs[2])
	}

	fenwickBuildU64(p.ub)
	for q := 0; q < len(p.ub)-1; q++ {
		fenwickBuildL1L2(p.lbTree(q))
	}

	return p
}

// Bits returns the number of bits in the indexed sequence.
func (p *Poppy) Bits() uint64 {
	return p.storage.Bits()
}

// Test returns the value of the bit at i.
func (p *Poppy) Test(i uint64) bool {
	return p.storage.Test(i)
}

// Count1 returns the total number of 1-bits: the root sum of ub.
func (p *Poppy) Count1() int {
	return int(fenwickSumU64(p.ub, len(p.ub)-1))
}

// Count0 returns the total number of 0-bits.
func (p *Poppy) Count0() int {
	return int(p.Bits()) - p.Count1()
}

// rank1At returns the number of 1-bits in [0, pos).
func (p *Poppy) rank1At(pos uint64) int {
	n := p.Bits()
	if pos == 0 {
		return 0
	}
	if pos >= n {
		return p.Count1()
	}

	q0, r0 := pos/upperBlock, pos%upperBlock
	q1, r1 := r0/superBlock, r0%superBlock
	q2, r2 := r1/basicBlock, r1%basicBlock

	c0 := fenwickSumU64(p.ub, int(q0))

	lb := p.lbTree(int(q0))
	c1 := fenwickSumL1L2(lb, int(q1))
	c2 := lb[q1+1].l2(int(q2))

	residue := p.storage.Rank1(pos-r2, pos)

	return int(c0) + int(c1) + int(c2) + residue
}

// Rank1 returns the number of 1-bits in the half-open range [lo, hi).
// It panics if lo > hi or hi > Bits().
func (p *Poppy) Rank1(lo, hi uint64) int {
	n := p.Bits()
	if lo > hi {
		panic("poppy: invalid range: lo > hi")
	}
	if hi > n {
		panic(fmt.Sprintf("poppy: index out of range [%d] with length %d", hi, n))
	}
	return p.rank1At(hi) - p.rank1At(lo)
}

// Rank0 returns the number of 0-bits in the half-open range [lo, hi).
// It panics if lo > hi or hi > Bits().
func (p *Poppy) Rank0(lo, hi uint64) int {
	n := p.Bits()
	if lo > hi {
		panic("poppy: invalid range: lo > hi")
	}
	if hi > n {
		panic(fmt.Sprintf("poppy: index out of range [%d] with length %d", hi, n))
	}
	return int(hi-lo) - p.Rank1(lo, hi)
}

// Select1 returns the position of the n-th (0-indexed) 1-bit, and false
// if n >= Count1().
func (p *Poppy) Select1(n int) (uint64, bool) {
	if n < 0 || uint64(n) >= uint64(p.Count1()) {
		return 0, false
	}
	r := uint64(n)

	q0 := fenwickLowerBoundU64(p.ub, r+1) - 1
	if q0 < 0 || q0 >= len(p.ub)-1 {
		return 0, false
	}
	r -= fenwickSumU64(p.ub, q0)

	lb := p.lbTree(q0)
	q1 := fenwickLowerBoundL1L2(lb, r+1) - 1
	r -= fenwickSumL1L2(lb, q1)

	ll := lb[q1+1]
	q2 := 0
	for q2 < 3 {
		l2 := ll.l2(q2+1) - ll.l2(q2)
		if r < l2 {
			break
		}
		r -= l2
		q2++
	}

	s := uint64(q0)*upperBlock + uint64(q1)*superBlock + uint64(q2)*basicBlock
	e := s + basicBlock
	if n := p.Bits(); e > n {
		e = n
	}

	return p.selectFinish(s, e, r, true)
}

// Select0 mirrors Select1, descending the complemented Fenwick views of
// ub and lb so no second, materialized zero-count tree is needed.
func (p *Poppy) Select0(n int) (uint64, bool) {
	if n < 0 || uint64(n) >= uint64(p.Count0()) {
		return 0, false
	}
	r := uint64(n)

	q0 := fenwickComplementLowerBoundU64(p.ub, upperBlock, r+1) - 1
	if q0 < 0 || q0 >= len(p.ub)-1 {
		return 0, false
	}
	r -= uint64(q0)*upperBlock - fenwickSumU64(p.ub, q0)

	lb := p.lbTree(q0)
	q1 := fenwickComplementLowerBoundL1L2(lb, superBlock, r+1) - 1
	r -= uint64(q1)*superBlock - fenwickSumL1L2(lb, q1)

	ll := lb[q1+1]
	q2 := 0
	for q2 < 3 {
		l2 := basicBlock - (ll.l2(q2+1) - ll.l2(q2))
		if r < l2 {
			break
		}
		r -= l2
		q2++
	}

	s := uint64(q0)*upperBlock + uint64(q1)*superBlock + uint64(q2)*basicBlock
	e := s + basicBlock
	if n := p.Bits(); e > n {
		e = n
	}

	return p.selectFinish(s, e, r, false)
}

// selectFinish scans [s, e) in 128-bit strides looking for the r-th
// (0-indexed) bit of the requested polarity, per spec.md §4.5 step 4.
func (p *Poppy) selectFinish(s, e, r uint64, one bool) (uint64, bool) {
	for i := s; i < e; i += 128 {
		lo, hi := p.storage.Unpack128(i)
		if !one {
			lo, hi = ^lo, ^hi
			if width := e - i; width < 128 {
				lo, hi = maskUnpacked(lo, hi, width)
			}
		}

		c := uint64(bitsOnesCount64(lo) + bitsOnesCount64(hi))
		if r < c {
			pos, ok := select128(lo, hi, int(r))
			if !ok {
				return 0, false
			}
			return i + uint64(pos), true
		}
		r -= c
	}
	return 0, false
}

// maskUnpacked clears bits at or beyond width (0..127) in the (lo, hi)
// 128-bit pair, used so Select0's complemented residue scan never
// counts padding bits past the end of the sequence as 0-bits.
func maskUnpacked(lo, hi uint64, width uint64) (uint64, uint64) {
	switch {
	case width >= 128:
		return lo, hi
	case width > 64:
		return lo, hi & (1<<(width-64) - 1)
	case width == 64:
		return lo, 0
	case width == 0:
		return 0, 0
	default:
		return lo & (1<<width - 1), 0
	}
}

// Set1 sets the bit at i to 1, updating the counters incrementally if
// the bit's value changed.
func (p *Poppy) Set1(i uint64) {
	if p.storage.Test(i) {
		return
	}
	p.storage.Set1(i)
	p.incr(i, 1)
}

// Set0 sets the bit at i to 0, updating the counters incrementally if
// the bit's value changed.
func (p *Poppy) Set0(i uint64) {
	if !p.storage.Test(i) {
		return
	}
	p.storage.Set0(i)
	p.decr(i, 1)
}

// incr and decr apply a point update of delta at bit position pos across
// the ub Fenwick tree, the owning upper block's lb Fenwick tree, and
// the interleaved L2 sub-counter of the owning super block.

func (p *Poppy) incr(pos uint64, delta uint64) {
	q0, r0 := pos/upperBlock, pos%upperBlock
	q1, r1 := r0/superBlock, r0%superBlock
	b := r1 / basicBlock

	fenwickIncrU64(p.ub, int(q0), delta)

	lb := p.lbTree(int(q0))
	fenwickIncrL1L2(lb, int(q1), delta)

	if b < 3 {
		lb[q1+1] = lb[q1+1].withL2Delta(int(b), int64(delta))
	}
}

func (p *Poppy) decr(pos uint64, delta uint64) {
	q0, r0 := pos/upperBlock, pos%upperBlock
	q1, r1 := r0/superBlock, r0%superBlock
	b := r1 / basicBlock

	fenwickDecrU64(p.ub, int(q0), delta)

	lb := p.lbTree(int(q0))
	fenwickDecrL1L2(lb, int(q1), delta)

	if b < 3 {
		lb[q1+1] = lb[q1+1].withL2Delta(int(b), -int64(delta))
	}
}

// String is a small debugging aid, in the spirit of the teacher's
// BitSet256.String.
func (p *Poppy) String() string {
	return fmt.Sprintf("poppy{bits:%d count1:%d}", p.Bits(), p.Count1())
}
