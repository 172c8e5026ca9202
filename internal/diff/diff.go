package diff

// FanOut sets how finely a disputed range is split per round: a range of n
// entries is cut into pieces of max(1, n/FanOut) entries (Open Question:
// resolved at 16, matching the reference algorithm).
const FanOut = 16

// Start builds the single all-encompassing segment a fresh reconciliation
// round begins with.
func Start[K any](q HashRangeQueryable[K]) HashSegment[K] {
	r := fullRange[K]()
	return HashSegment[K]{
		Range: r,
		Hash:  hashOf(q, r),
		Size:  q.Len(),
	}
}

// Round consumes one batch of segments received from a peer and returns the
// segments to send back plus the ranges now known to actually differ
// (destined to become key/value updates once the caller enumerates them).
// Round is stateless: it reads q but never mutates anything, and the caller
// is responsible for driving successive rounds until no segments come back.
func Round[K any](q HashRangeQueryable[K], incoming []HashSegment[K]) (outgoing []HashSegment[K], diffs []Range[K]) {
	for _, seg := range incoming {
		localHash := hashOf(q, seg.Range)
		if localHash == seg.Hash {
			continue
		}
		if seg.Hash == 0 {
			// remote has nothing here; the data is only ours to send
			diffs = append(diffs, seg.Range)
			continue
		}
		if localHash == 0 {
			// we have nothing here; ask the remote to send it over
			outgoing = append(outgoing, HashSegment[K]{Range: seg.Range})
			continue
		}

		startIdx, endIdx := indexRange(q, seg.Range)
		localSize := endIdx - startIdx

		switch {
		case seg.Size == 1 && localSize == 1:
			// both sides have exactly one, differing, entry here: ask for
			// theirs and send ours
			outgoing = append(outgoing, HashSegment[K]{Range: seg.Range})
			diffs = append(diffs, seg.Range)
		case localSize == 1:
			// not enough to resolve yet; bounce our one-entry summary back
			outgoing = append(outgoing, HashSegment[K]{Range: seg.Range, Hash: localHash, Size: localSize})
		default:
			outgoing = append(outgoing, subdivide(q, seg.Range, startIdx, endIdx)...)
		}
	}
	return outgoing, diffs
}

// subdivide splits [startIdx, endIdx) into consecutive sub-segments of
// max(1, n/FanOut) entries each (the last one may be shorter) and returns
// their hash summaries. A range of n >= FanOut entries yields between FanOut
// and 2*FanOut-1 sub-segments; a smaller range yields one per entry.
func subdivide[K any](q HashRangeQueryable[K], full Range[K], startIdx, endIdx int) []HashSegment[K] {
	step := (endIdx - startIdx) / FanOut
	if step < 1 {
		step = 1
	}
	var out []HashSegment[K]
	curBound := full.Start
	curIndex := startIdx
	for {
		nextIndex := curIndex + step
		if nextIndex >= endIdx {
			r := Range[K]{Start: curBound, End: full.End}
			out = append(out, HashSegment[K]{Range: r, Hash: hashOf(q, r), Size: endIdx - curIndex})
			return out
		}
		nextKey, _ := q.KeyAt(nextIndex)
		r := Range[K]{Start: curBound, End: Bound[K]{Kind: Excluded, Key: nextKey}}
		out = append(out, HashSegment[K]{Range: r, Hash: hashOf(q, r), Size: nextIndex - curIndex})
		curBound = Bound[K]{Kind: Included, Key: nextKey}
		curIndex = nextIndex
	}
}
