package sv

import "fmt"

// Stats counts what happened to contigs, junctions and calls during a run.
// Nothing counted here is an error; every counter but ContigErrors records a
// filtered-out case.
type Stats struct {
	// Contigs is the number of contigs with at least one c2g record.
	Contigs int
	// ContigsWithoutBlocks counts contigs with no block surviving selection.
	ContigsWithoutBlocks int
	// ContigErrors counts contigs skipped because of malformed input.
	ContigErrors int
	// Records and DroppedRecords count c2g records seen and discarded.
	Records        int
	DroppedRecords int
	// Blocks is the number of aligned blocks kept.
	Blocks int
	// Junctions is the number of junctions that passed extraction.
	Junctions int
	// RejectedHomology counts junctions whose contig overlap exceeds
	// Opts.MaxHomolLen.
	RejectedHomology int
	// RejectedNovel counts junctions whose untemplated sequence exceeds
	// Opts.MaxNovelLen.
	RejectedNovel int
	// Noise counts junctions too small to be classified.
	Noise int
	// Calls is the number of classified calls before merging.
	Calls int
	// MergedCalls is the number of distinct calls after merging.
	MergedCalls int
	// LowSupport counts merged calls dropped by Opts.MinSupport.
	LowSupport int

	FilteredUTR          int
	FilteredNonsense     int
	FilteredNonExonBound int
	FilteredNoncoding    int
	FilteredReadThrough  int
	FilteredHomolNovel   int
	// FilteredUntiled counts calls with long novel sequence not tiled by reads.
	FilteredUntiled int
	// FilteredRegion counts calls without a breakpoint in the target regions.
	FilteredRegion int

	// Reported is the number of calls in the final output.
	Reported int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Contigs += o.Contigs
	s.ContigsWithoutBlocks += o.ContigsWithoutBlocks
	s.ContigErrors += o.ContigErrors
	s.Records += o.Records
	s.DroppedRecords += o.DroppedRecords
	s.Blocks += o.Blocks
	s.Junctions += o.Junctions
	s.RejectedHomology += o.RejectedHomology
	s.RejectedNovel += o.RejectedNovel
	s.Noise += o.Noise
	s.Calls += o.Calls
	s.MergedCalls += o.MergedCalls
	s.LowSupport += o.LowSupport
	s.FilteredUTR += o.FilteredUTR
	s.FilteredNonsense += o.FilteredNonsense
	s.FilteredNonExonBound += o.FilteredNonExonBound
	s.FilteredNoncoding += o.FilteredNoncoding
	s.FilteredReadThrough += o.FilteredReadThrough
	s.FilteredHomolNovel += o.FilteredHomolNovel
	s.FilteredUntiled += o.FilteredUntiled
	s.FilteredRegion += o.FilteredRegion
	s.Reported += o.Reported
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("contigs: %d (no blocks: %d, errors: %d), records: %d (dropped: %d), blocks: %d, "+
		"junctions: %d (homology: %d, novel: %d, noise: %d), calls: %d, merged: %d, low support: %d, "+
		"filtered utr: %d, nonsense: %d, non-exon-bound: %d, noncoding: %d, read-through: %d, homol/novel: %d, "+
		"untiled: %d, region: %d, reported: %d",
		s.Contigs, s.ContigsWithoutBlocks, s.ContigErrors, s.Records, s.DroppedRecords, s.Blocks,
		s.Junctions, s.RejectedHomology, s.RejectedNovel, s.Noise, s.Calls, s.MergedCalls, s.LowSupport,
		s.FilteredUTR, s.FilteredNonsense, s.FilteredNonExonBound, s.FilteredNoncoding, s.FilteredReadThrough,
		s.FilteredHomolNovel, s.FilteredUntiled, s.FilteredRegion, s.Reported)
}
