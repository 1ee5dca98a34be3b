package search

import (
	"sort"

	"github.com/greyhollow/lorebase/internal/domain/search/mode"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009). Lower values favor top-ranked items, higher values
// favor consistency across lists.
const DefaultRRFK = 60

// fusionEntry tracks one unique candidate across both ranked lists during
// the merge. Ranks are 1-indexed; 0 means absent from that list.
type fusionEntry struct {
	candidate  result.Candidate
	vectorRank int
	textRank   int
	raw        float64
}

// fuseRRF merges two ranked candidate lists via Reciprocal Rank Fusion:
// raw(d) = 1/(k + vectorRank(d)) + 1/(k + textRank(d)).
// A candidate absent from one list takes the default rank
// max(len(vector), len(text), 1) + 1, penalized but finite. When a candidate
// appears in both lists the vector copy is kept. The output is sorted by
// descending raw score; ties keep discovery order (vector list first).
func fuseRRF(vectorList, textList []result.Candidate, k int) []fusionEntry {
	defaultRank := max(len(vectorList), len(textList), 1) + 1

	order := make([]string, 0, len(vectorList)+len(textList))
	merged := make(map[string]*fusionEntry, len(vectorList)+len(textList))

	for i := range vectorList {
		c := vectorList[i]
		merged[c.ID()] = &fusionEntry{candidate: c, vectorRank: i + 1}
		order = append(order, c.ID())
	}

	for i := range textList {
		c := textList[i]
		if existing, ok := merged[c.ID()]; ok {
			existing.textRank = i + 1
			continue
		}
		merged[c.ID()] = &fusionEntry{candidate: c, textRank: i + 1}
		order = append(order, c.ID())
	}

	entries := make([]fusionEntry, 0, len(merged))
	for _, id := range order {
		e := merged[id]
		vr, tr := e.vectorRank, e.textRank
		if vr == 0 {
			vr = defaultRank
		}
		if tr == 0 {
			tr = defaultRank
		}
		e.raw = 1.0/float64(k+vr) + 1.0/float64(k+tr)
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].raw > entries[j].raw
	})

	return entries
}

// normalize maps fused entries onto the canonical [0,1] scale via min-max
// scaling over the batch. A batch whose raw scores are all equal (including
// a single-entry batch) normalizes every item to 1.0.
func normalize(entries []fusionEntry, m mode.Mode) []result.Result {
	if len(entries) == 0 {
		return nil
	}

	raws := make([]float64, len(entries))
	for i := range entries {
		raws[i] = entries[i].raw
	}
	scaled := minMaxScale(raws)

	out := make([]result.Result, len(entries))
	for i := range entries {
		out[i] = result.NewResult(entries[i].candidate, scaled[i], m)
	}
	return out
}

// normalizeCandidates applies the same batch-relative min-max scaling to an
// already-fused candidate list with opaque scores (native hybrid).
func normalizeCandidates(cands []result.Candidate, m mode.Mode) []result.Result {
	if len(cands) == 0 {
		return nil
	}

	raws := make([]float64, len(cands))
	for i := range cands {
		raws[i] = cands[i].Score()
	}
	scaled := minMaxScale(raws)

	out := make([]result.Result, len(cands))
	for i := range cands {
		out[i] = result.NewResult(cands[i], scaled[i], m)
	}
	return out
}

// minMaxScale maps raw scores onto [0,1]: max to 1.0, min to 0.0.
// All-equal batches map to 1.0 rather than arbitrarily depressing them to 0.
func minMaxScale(raws []float64) []float64 {
	lo, hi := raws[0], raws[0]
	for _, r := range raws[1:] {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}

	out := make([]float64, len(raws))
	if hi == lo {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, r := range raws {
		out[i] = (r - lo) / (hi - lo)
	}
	return out
}
