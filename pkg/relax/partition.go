package relax

// CyclePartition holds, for every read-write cycle, the ordered step indices
// of its read and write branches. Per cycle the two sets are disjoint, their
// union is the cycle's full contiguous block, and their sizes equal
// ReadsPerCycle and WritesPerCycle. Built once per pipeline and shared
// read-only afterwards.
type CyclePartition struct {
	Read  [][]int
	Write [][]int
}

// NewCyclePartition derives the per-cycle index sets from scan metadata.
//
// The step range [0, NumSteps) is split into C contiguous near-equal blocks,
// one per cycle, earlier blocks taking any remainder. Within each block the
// leading WritesPerCycle (starts_with=write) or trailing WritesPerCycle
// (starts_with=read) indices belong to the write branch. The write sets are
// then re-derived globally as the complement of the concatenated read sets,
// re-split into C groups, so any misalignment between the two derivations
// shows up here instead of corrupting downstream fits.
func NewCyclePartition(m ScanMetadata) (CyclePartition, error) {
	if err := m.Validate(); err != nil {
		return CyclePartition{}, err
	}

	cycles := m.Cycles()
	blocks := splitRange(m.NumSteps, cycles)

	read := make([][]int, cycles)
	for c, block := range blocks {
		if len(block) != m.ReadsPerCycle+m.WritesPerCycle {
			return CyclePartition{}, configErrorf("cycle %d spans %d steps, want %d",
				c, len(block), m.ReadsPerCycle+m.WritesPerCycle)
		}
		if m.StartsWith == StartsWithWrite {
			read[c] = block[m.WritesPerCycle:]
		} else {
			read[c] = block[:m.ReadsPerCycle]
		}
	}

	inRead := make([]bool, m.NumSteps)
	for _, r := range read {
		for _, idx := range r {
			inRead[idx] = true
		}
	}
	var writeAll []int
	for idx := 0; idx < m.NumSteps; idx++ {
		if !inRead[idx] {
			writeAll = append(writeAll, idx)
		}
	}
	if len(writeAll) != cycles*m.WritesPerCycle {
		return CyclePartition{}, configErrorf("complement holds %d write steps, want %d",
			len(writeAll), cycles*m.WritesPerCycle)
	}

	write := make([][]int, cycles)
	for c := 0; c < cycles; c++ {
		write[c] = writeAll[c*m.WritesPerCycle : (c+1)*m.WritesPerCycle]
	}

	return CyclePartition{Read: read, Write: write}, nil
}

// Cycles returns the number of cycles in the partition.
func (p CyclePartition) Cycles() int {
	return len(p.Read)
}

// splitRange splits [0, n) into k contiguous near-equal blocks; the first
// n%k blocks are one element longer.
func splitRange(n, k int) [][]int {
	blocks := make([][]int, k)
	base := n / k
	extra := n % k
	next := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		block := make([]int, size)
		for j := 0; j < size; j++ {
			block[j] = next + j
		}
		blocks[i] = block
		next += size
	}
	return blocks
}
