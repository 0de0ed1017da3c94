package sv

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/contigsv/encoding/fasta"
	pkgerrors "github.com/pkg/errors"
)

// Inputs bundles the alignments and the read-only collaborators of a run.
// Everything but Records is optional in genome mode; Features is required in
// transcriptome and splice modes.
type Inputs struct {
	// Records are the contig-to-genome records, in any order.
	Records []Record
	// Contigs holds the contig sequences.
	Contigs SeqAccessor
	// Reference holds the reference sequences. When set, every block must refer
	// to one of its sequences.
	Reference SeqAccessor
	// Reads holds the read-to-contig alignments.
	Reads    ReadSource
	Features FeatureLookup
	Known    KnownEvents
}

// Result is the outcome of a run.
type Result struct {
	Calls []VariantCall
	// Candidates are the merged and annotated calls before any filtering.
	// Refilter turns them into Calls.
	Candidates []VariantCall
	// Mappings lists, in splice mode, the transcripts each contig with blocks
	// lies on. It is sorted by contig.
	Mappings []Mapping
	// ContigErrors maps each contig skipped because of malformed input to the
	// cause.
	ContigErrors map[string]error
	Stats        Stats
}

type contigResult struct {
	contig  string
	calls   []VariantCall
	mapping *Mapping
	stats   Stats
	err     error
}

func groupByContig(records []Record) (names []string, groups map[string][]Record) {
	groups = map[string][]Record{}
	for _, r := range records {
		if _, ok := groups[r.Contig]; !ok {
			names = append(names, r.Contig)
		}
		groups[r.Contig] = append(groups[r.Contig], r)
	}
	sort.Strings(names)
	return names, groups
}

// seqError wraps a sequence lookup failure. Names missing from the FASTA
// become errors.NotExist.
func seqError(err error, format string, args ...interface{}) error {
	kind := errors.Invalid
	if pkgerrors.Cause(err) == fasta.ErrUnknownSequence {
		kind = errors.NotExist
	}
	return errors.E(kind, fmt.Sprintf(format, args...), err)
}

func readSeq(acc SeqAccessor, name string) (string, error) {
	n, err := acc.Len(name)
	if err != nil || n == 0 {
		return "", err
	}
	return acc.Get(name, 0, n)
}

// processContig runs block selection, junction extraction, classification and
// read support for one contig.
func processContig(name string, records []Record, in *Inputs, classifier *Classifier, opts Opts) contigResult {
	res := contigResult{contig: name}
	res.stats.Contigs = 1
	ca, err := NewContigAlignment(records, opts, &res.stats)
	if err != nil {
		res.err = err
		return res
	}
	if in.Reference != nil {
		for _, b := range ca.Blocks {
			if _, err := in.Reference.Len(b.Ref); err != nil {
				res.err = seqError(err, "contig %s: reference %s", name, b.Ref)
				return res
			}
		}
	}
	if in.Contigs != nil {
		seq, err := readSeq(in.Contigs, name)
		if err != nil {
			res.err = seqError(err, "contig %s: sequence", name)
			return res
		}
		if ca.Len > 0 && len(seq) != ca.Len {
			res.err = errors.E(errors.Invalid,
				fmt.Sprintf("contig %s: sequence length %d, alignments say %d", name, len(seq), ca.Len))
			return res
		}
		ca.Seq = strings.ToUpper(seq)
		ca.Len = len(seq)
	}
	if ca.Empty() {
		res.stats.ContigsWithoutBlocks++
		return res
	}
	if err := ca.Validate(opts.MaxBlockOverlap); err != nil {
		res.err = errors.E(errors.Invalid, err)
		return res
	}
	if opts.Mode == Splice {
		m := MapTranscripts(&ca, in.Features)
		res.mapping = &m
	}
	junctions := ExtractJunctions(&ca, opts, &res.stats)
	res.calls = classifier.ClassifyAlignment(&ca, junctions, &res.stats)
	if in.Reads != nil {
		reads := in.Reads.Reads(name)
		for i := range res.calls {
			addReadEvidence(&res.calls[i], reads, opts)
		}
	}
	return res
}

// Run calls variants from the contig alignments in in. Contigs are processed
// in parallel batches; their calls are merged by a single goroutine, then
// filtered by support, annotated, filtered by annotation and given probes.
// Malformed input fails only the affected contig. Run fails only when there
// are no alignments at all.
func Run(in Inputs, opts Opts) (Result, error) {
	if len(in.Records) == 0 {
		return Result{}, errors.E(errors.Invalid, "no contig alignments")
	}
	if opts.Mode != Genome && in.Features == nil {
		return Result{}, errors.E(errors.Invalid, fmt.Sprintf("%v mode requires an annotation", opts.Mode))
	}
	names, groups := groupByContig(in.Records)
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(names) {
		parallelism = len(names)
	}

	var (
		classifier = NewClassifier(opts, in.Features, in.Known, in.Reference)
		merger     = NewMerger(opts.MergeTolerance)
		result     = Result{ContigErrors: map[string]error{}}
		resCh      = make(chan contigResult, 1024)
		doneCh     = make(chan struct{})
	)
	go func() {
		for r := range resCh {
			result.Stats = result.Stats.Merge(r.stats)
			if r.err != nil {
				log.Error.Printf("skipping contig %s: %v", r.contig, r.err)
				result.ContigErrors[r.contig] = r.err
				result.Stats.ContigErrors++
				continue
			}
			for _, c := range r.calls {
				merger.Add(c)
			}
			if r.mapping != nil {
				result.Mappings = append(result.Mappings, *r.mapping)
			}
		}
		close(doneCh)
	}()
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(names)) / parallelism
		endIdx := ((jobIdx + 1) * len(names)) / parallelism
		for _, name := range names[startIdx:endIdx] {
			resCh <- processContig(name, groups[name], &in, classifier, opts)
		}
		return nil
	})
	close(resCh)
	<-doneCh
	if err != nil {
		return Result{}, err
	}

	sort.Slice(result.Mappings, func(i, j int) bool { return result.Mappings[i].Contig < result.Mappings[j].Contig })
	calls := merger.Calls()
	result.Stats.MergedCalls = len(calls)
	log.Printf("%d contigs, %d calls, %d distinct", len(names), result.Stats.Calls, len(calls))
	if in.Features != nil {
		annotator := NewAnnotator(in.Features, in.Known, opts)
		for i := range calls {
			calls[i] = annotator.Annotate(calls[i])
		}
	}
	if in.Contigs != nil {
		seqs := map[string]string{}
		for i := range calls {
			contig := calls[i].Junctions[0].Contig
			seq, ok := seqs[contig]
			if !ok {
				if seq, err = readSeq(in.Contigs, contig); err != nil {
					return Result{}, err
				}
				seq = strings.ToUpper(seq)
				seqs[contig] = seq
			}
			calls[i] = AddProbes(calls[i], seq, opts)
		}
	}
	result.Candidates = calls
	calls = Refilter(calls, opts, &result.Stats)
	result.Calls = calls
	result.Stats.Reported = len(calls)
	log.Printf("Stats: %v", result.Stats)
	return result, nil
}

// Refilter applies the support and annotation filters to merged calls and
// sorts the survivors when opts.SortByCoord is set. It does not modify
// candidates. Run uses it, and so can callers holding the candidates of an
// earlier run.
func Refilter(candidates []VariantCall, opts Opts, stats *Stats) []VariantCall {
	calls := FilterBySupport(candidates, opts, stats)
	calls = Filter(calls, opts, stats)
	if opts.SortByCoord {
		SortByCoord(calls)
	}
	return calls
}
