package sv

import "sort"

// Mapping describes how one contig lies on annotated transcripts.
type Mapping struct {
	Contig string
	// Genes are the distinct genes of Transcripts, in order of first
	// appearance.
	Genes       []string
	Transcripts []string
	// Coverages[i] is the fraction of the exonic bases of Transcripts[i]
	// covered by the aligned blocks of the contig.
	Coverages []float64
}

// MapTranscripts finds the transcripts overlapping the aligned blocks of ca,
// sorted by ID, and computes how much of their exons the blocks cover.
func MapTranscripts(ca *ContigAlignment, lookup FeatureLookup) Mapping {
	m := Mapping{Contig: ca.Contig}
	if lookup == nil {
		return m
	}
	aligned := map[string][]Span{}
	seen := map[string]*Transcript{}
	for _, b := range ca.Blocks {
		aligned[b.Ref] = append(aligned[b.Ref], b.RefSpan)
		for _, t := range lookup.Transcripts(b.Ref, b.RefSpan.Start, b.RefSpan.End) {
			seen[t.ID] = t
		}
	}
	txs := make([]*Transcript, 0, len(seen))
	for _, t := range seen {
		txs = append(txs, t)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })

	for ref, spans := range aligned {
		aligned[ref] = unionSpans(spans)
	}
	genes := map[string]bool{}
	for _, t := range txs {
		if !genes[t.Gene] {
			genes[t.Gene] = true
			m.Genes = append(m.Genes, t.Gene)
		}
		m.Transcripts = append(m.Transcripts, t.ID)
		exons := unionSpans(t.Exons)
		total := 0
		for _, e := range exons {
			total += e.Len()
		}
		cov := 0.0
		if total > 0 {
			cov = float64(intersectLen(exons, aligned[t.Chrom])) / float64(total)
		}
		m.Coverages = append(m.Coverages, cov)
	}
	return m
}

// intersectLen returns the number of bases shared by two sorted lists of
// disjoint spans.
func intersectLen(a, b []Span) int {
	n := 0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		n += a[i].Overlap(b[j])
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return n
}
