package main

// bio-contigsv calls structural variants, fusions and splice variants from
// assembled contigs.
//
// It has two phases.
//
//   1. call, merge and annotate variants from contig-to-genome alignments
//      (-c2g) and read-to-contig alignments (-r2c). All candidates are dumped
//      to -rio-output.
//
//   2. filter the candidates and write the survivors to -out as TSV.
//
// Example 1: genomic rearrangements
//
//    bio-contigsv genome -c2g=c2g.bam -r2c=r2c.bam -contigs=contigs.fa -ref=hg38.fa -out=sv.tsv
//
// Example 2: fusions from a transcriptome assembly, keeping read-throughs
//
//    bio-contigsv transcriptome -c2g=c2g.bam -r2c=r2c.bam -contigs=contigs.fa -gtf=gencode.gtf -known-fusions=cosmic.tsv -include-read-through -out=fusions.tsv -rio-output=all.rio
//
// Example 3: rerun only the 2nd phase with a different support threshold
//
//    bio-contigsv refilter -min-support=2 -out=fusions2.tsv all.rio

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/contigsv/encoding/fasta"
	"github.com/grailbio/contigsv/interval"
	"github.com/grailbio/contigsv/sv"
	"github.com/grailbio/contigsv/sv/gtf"
	"github.com/pkg/profile"
	"v.io/x/lib/cmdline"
)

// Collection of options set via cmdline flags
type callFlags struct {
	c2gPath          string
	r2cPath          string
	contigsPath      string
	refPath          string
	gtfPath          string
	supplGTFPath     string
	knownFusionsPath string
	codingOnly       bool
	outPath          string
	rioOutputPath    string
	cpuProfile       string
	kinds            string
	mappingsPath     string
	regions          regionFlags
}

// regionFlags restrict the reported calls to target regions.
type regionFlags struct {
	bedPath string
	regions string
	invert  bool
}

func (rf *regionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&rf.bedPath, "regions", "", "BED file of target regions. Only calls with a breakpoint inside them are reported.")
	fs.StringVar(&rf.regions, "region", "", `Comma-separated target regions of form "chr", "chr:pos" or "chr:start-end", 1-based. Exclusive with -regions.`)
	fs.BoolVar(&rf.invert, "invert-regions", false, "Report only calls with a breakpoint outside the target regions.")
}

// load returns the target regions, or nil when none are set.
func (rf *regionFlags) load(ctx context.Context) (sv.RegionSet, error) {
	opts := interval.Opts{Invert: rf.invert}
	switch {
	case rf.bedPath != "" && rf.regions != "":
		return nil, fmt.Errorf("-regions and -region are exclusive")
	case rf.bedPath != "":
		return interval.NewRegionsFromPath(ctx, rf.bedPath, opts)
	case rf.regions != "":
		var entries []interval.Entry
		for _, region := range strings.Split(rf.regions, ",") {
			e, err := interval.ParseRegionString(region)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return interval.NewRegionsFromEntries(entries, opts)
	}
	return nil, nil
}

// parseKinds parses a comma-separated list of kind names. It returns nil for
// an empty list.
func parseKinds(list string) (map[sv.Kind]bool, error) {
	if list == "" {
		return nil, nil
	}
	kinds := map[sv.Kind]bool{}
	for _, name := range strings.Split(list, ",") {
		k, ok := sv.ParseKind(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown event kind %q", name)
		}
		kinds[k] = true
	}
	return kinds, nil
}

// restrictCalls drops the calls outside regions or of kinds not listed.
// Either may be nil.
func restrictCalls(calls []sv.VariantCall, regions sv.RegionSet, kinds map[sv.Kind]bool, stats *sv.Stats) []sv.VariantCall {
	if regions != nil {
		calls = sv.FilterByRegion(calls, regions, stats)
	}
	if kinds != nil {
		out := calls[:0:0]
		for _, c := range calls {
			if kinds[c.Kind] {
				out = append(out, c)
			}
		}
		if n := len(calls) - len(out); n > 0 {
			log.Printf("Discarding %d of %d calls of unselected kinds", n, len(calls))
		}
		calls = out
	}
	stats.Reported = len(calls)
	return calls
}

// registerFilterOpts binds the flags of the filtering phase to opts. refilter
// accepts only these.
func registerFilterOpts(fs *flag.FlagSet, opts *sv.Opts) {
	d := sv.DefaultOpts
	fs.IntVar(&opts.MinSupport, "min-support", d.MinSupport, "Minimum number of reads spanning a break")
	fs.IntVar(&opts.MaxHomolLen, "max-homol-len", d.MaxHomolLen, "Max microhomology at a junction")
	fs.IntVar(&opts.MaxNovelLen, "max-novel-len", d.MaxNovelLen, "Max untemplated sequence at a junction")
	fs.IntVar(&opts.MinTilingNovelLen, "min-tiling-novel-len", d.MinTilingNovelLen, "Drop calls with at least this much novel sequence unless reads tile across the break. Zero disables the check")
	fs.BoolVar(&opts.NoUTR, "no-utr", d.NoUTR, "Drop events with a breakpoint in an untranslated region")
	fs.BoolVar(&opts.IncludeNonsenseFusion, "include-nonsense-fusion", d.IncludeNonsenseFusion, "Keep fusions joined against the direction of transcription")
	fs.BoolVar(&opts.IncludeNonExonBoundFusion, "include-non-exon-bound-fusion", d.IncludeNonExonBoundFusion, "Keep fusions whose breakpoints are not on exon boundaries")
	fs.BoolVar(&opts.IncludeNoncodingFusion, "include-noncoding-fusion", d.IncludeNoncodingFusion, "Keep fusions involving a non-coding gene")
	fs.BoolVar(&opts.IncludeReadThrough, "include-read-through", d.IncludeReadThrough, "Keep fusions between neighboring genes")
	fs.BoolVar(&opts.SortByCoord, "sort-by-coord", d.SortByCoord, "Sort the output by reference and position")
}

// registerCallOpts binds the flags of the calling phase to opts.
func registerCallOpts(fs *flag.FlagSet, opts *sv.Opts) {
	d := sv.DefaultOpts
	fs.IntVar(&opts.MinMapQ, "min-mapq", d.MinMapQ, "Minimum mapping quality of a contig alignment")
	fs.Float64Var(&opts.MaxEditFraction, "max-edit-fraction", d.MaxEditFraction, "Drop contig alignments whose NM, minus indel bases, divided by the aligned length exceeds this value")
	fs.IntVar(&opts.MinBlockLen, "min-block-len", d.MinBlockLen, "Minimum length of an aligned block")
	fs.IntVar(&opts.MaxBlockOverlap, "max-block-overlap", d.MaxBlockOverlap, "Largest contig overlap tolerated between blocks of different alignments")
	fs.BoolVar(&opts.ReplaceHaplotypes, "replace-haplotypes", d.ReplaceHaplotypes, "Replace alignments to references whose names contain '_' with secondary alignments to other references")
	fs.IntVar(&opts.MinIndelSize, "min-indel-size", d.MinIndelSize, "Minimum size of a deletion or insertion")
	fs.IntVar(&opts.MinIndelFlanking, "min-indel-flanking", d.MinIndelFlanking, "Bases a read must extend past each side of a break")
	fs.IntVar(&opts.MinDupOverlap, "min-dup-overlap", d.MinDupOverlap, "Smallest reference re-traversal called a duplication")
	fs.IntVar(&opts.CleanBreakTolerance, "clean-break-tolerance", d.CleanBreakTolerance, "Largest contig and reference gap of a junction reported without homology or novel sequence")
	fs.IntVar(&opts.ExonBoundTolerance, "exon-bound-tolerance", d.ExonBoundTolerance, "Distance from an exon edge still considered on the boundary")
	fs.IntVar(&opts.MaxProximityDistance, "max-proximity-distance", d.MaxProximityDistance,
		`Upper limit on the distance cutoff below which a candidate will be flagged as a read-through event.`)
	fs.IntVar(&opts.MaxProximityGenes, "max-proximity-genes", d.MaxProximityGenes,
		`Upper limit on the number of genes separating a gene pair (If on the same chromsosome) below which they will be flagged as read-through events`)
	fs.IntVar(&opts.ItdMinLen, "itd-min-len", d.ItdMinLen, "Minimum length of an internal tandem duplication")
	fs.Float64Var(&opts.ItdMinIdentity, "itd-min-id", d.ItdMinIdentity, "Minimum identity between a duplicated copy and its neighbor")
	fs.IntVar(&opts.ItdMaxApart, "itd-max-apart", d.ItdMaxApart, "Max distance between a duplicated copy and its neighbor")
	fs.IntVar(&opts.MaxRepeatUnit, "max-repeat-unit", d.MaxRepeatUnit, "Longest repeat unit considered for repeat expansion or contraction")
	fs.IntVar(&opts.MinRepeatCopies, "min-repeat-copies", d.MinRepeatCopies, "Minimum repeat unit copies flanking a junction")
	fs.IntVar(&opts.MinIntronSize, "min-intron-size", d.MinIntronSize, "Smallest gap inside an exon called a novel intron")
	fs.BoolVar(&opts.RequireSpliceMotif, "require-splice-motif", d.RequireSpliceMotif, "Require a GT-AG motif at novel splice sites when -ref is set")
	fs.IntVar(&opts.MergeTolerance, "merge-tolerance", d.MergeTolerance, "Bucket size for rounding breakpoints when merging calls across contigs. Buckets are fixed, so neighbors across a bucket edge do not merge")
	fs.IntVar(&opts.ProbeLen, "probe-len", d.ProbeLen, "Length of the probe centered on each break")
	fs.IntVar(&opts.SubseqLen, "subseq-len", d.SubseqLen, "Length of the contig window flanking each break")
	fs.IntVar(&opts.Parallelism, "parallelism", d.Parallelism, "Number of contig batches processed concurrently. Zero means the number of CPUs")
}

func newCmdCall(mode sv.Mode, short string) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  mode.String(),
		Short: short,
	}
	opts := sv.DefaultOpts
	opts.Mode = mode
	registerCallOpts(&cmd.Flags, &opts)
	registerFilterOpts(&cmd.Flags, &opts)
	flags := callFlags{}
	cmd.Flags.StringVar(&flags.c2gPath, "c2g", "", "BAM or SAM file of contigs aligned to the genome. Required.")
	cmd.Flags.StringVar(&flags.r2cPath, "r2c", "", "BAM or SAM file of reads aligned to the contigs. Without it no call has read support.")
	cmd.Flags.StringVar(&flags.contigsPath, "contigs", "", "FASTA file of contig sequences. Needed for homology, novel sequence and probes.")
	cmd.Flags.StringVar(&flags.refPath, "ref", "", "Reference genome FASTA. Used to check splice motifs and repeat contractions.")
	cmd.Flags.StringVar(&flags.gtfPath, "gtf", "", "Gene annotation GTF. Required in transcriptome and splice modes.")
	cmd.Flags.StringVar(&flags.supplGTFPath, "suppl-gtf", "", "Supplementary GTF listing known junctions and exons.")
	cmd.Flags.StringVar(&flags.knownFusionsPath, "known-fusions", "", `Cosmic TSV of known fusions. The "Genes" column must be of form gene1/gene2.`)
	cmd.Flags.BoolVar(&flags.codingOnly, "coding-only", false, "Load protein coding transcripts only.")
	cmd.Flags.StringVar(&flags.outPath, "out", "", "Output TSV. A .gz suffix compresses it. Defaults to stdout.")
	cmd.Flags.StringVar(&flags.rioOutputPath, "rio-output", "", "If set, all candidates are dumped to this recordio file for refilter.")
	cmd.Flags.StringVar(&flags.cpuProfile, "cpuprofile", "", "If set, write a CPU profile to this directory.")
	cmd.Flags.StringVar(&flags.kinds, "kinds", "", `Comma-separated event kinds to report, e.g. "deletion,fusion". Empty reports all.`)
	if mode == sv.Splice {
		cmd.Flags.StringVar(&flags.mappingsPath, "mappings-out", "", "If set, write the transcripts each contig maps to, with their exon coverage, to this TSV file.")
	}
	flags.regions.register(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("%s takes no positional arguments, but got %v", mode, argv)
		}
		if flags.c2gPath == "" {
			return fmt.Errorf("-c2g is required")
		}
		if mode != sv.Genome && flags.gtfPath == "" {
			return fmt.Errorf("-gtf is required in %s mode", mode)
		}
		if flags.cpuProfile != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(flags.cpuProfile), profile.NoShutdownHook).Stop()
		}
		return callVariants(vcontext.Background(), flags, opts)
	})
	return cmd
}

func newCmdRefilter() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "refilter",
		Short:    "Filter the candidates dumped by -rio-output with new thresholds",
		ArgsName: "rio-path",
	}
	opts := sv.DefaultOpts
	registerFilterOpts(&cmd.Flags, &opts)
	outPath := cmd.Flags.String("out", "", "Output TSV. A .gz suffix compresses it. Defaults to stdout.")
	kindList := cmd.Flags.String("kinds", "", `Comma-separated event kinds to report, e.g. "deletion,fusion". Empty reports all.`)
	var rf regionFlags
	rf.register(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("refilter takes one pathname argument, but got %v", argv)
		}
		set := map[string]bool{}
		cmd.Flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
		ctx := vcontext.Background()
		regions, err := rf.load(ctx)
		if err != nil {
			return err
		}
		kinds, err := parseKinds(*kindList)
		if err != nil {
			return err
		}
		return refilter(ctx, argv[0], *outPath, opts, set, regions, kinds)
	})
	return cmd
}

func loadInputs(ctx context.Context, flags callFlags) (in sv.Inputs, err error) {
	if in.Records, err = readContigAlignments(ctx, flags.c2gPath); err != nil {
		return
	}
	if flags.r2cPath != "" {
		if in.Reads, err = readReadAlignments(ctx, flags.r2cPath); err != nil {
			return
		}
	}
	if flags.contigsPath != "" {
		if in.Contigs, err = fasta.Open(ctx, flags.contigsPath); err != nil {
			return
		}
	}
	if flags.refPath != "" {
		if in.Reference, err = fasta.Open(ctx, flags.refPath); err != nil {
			return
		}
	}
	if flags.gtfPath != "" {
		transcripts, err := gtf.Read(ctx, flags.gtfPath, gtf.Opts{CodingOnly: flags.codingOnly})
		if err != nil {
			return in, err
		}
		in.Features = gtf.NewIndex(transcripts)
	}
	var supplIndex *gtf.Index
	if flags.supplGTFPath != "" {
		transcripts, err := gtf.Read(ctx, flags.supplGTFPath, gtf.Opts{})
		if err != nil {
			return in, err
		}
		supplIndex = gtf.NewIndex(transcripts)
	}
	known := gtf.NewKnown(supplIndex)
	if flags.knownFusionsPath != "" {
		if err = known.ReadKnownFusions(ctx, flags.knownFusionsPath); err != nil {
			return
		}
	}
	in.Known = known
	return
}

func callVariants(ctx context.Context, flags callFlags, opts sv.Opts) error {
	log.Printf("Start reading inputs")
	regions, err := flags.regions.load(ctx)
	if err != nil {
		return err
	}
	kinds, err := parseKinds(flags.kinds)
	if err != nil {
		return err
	}
	in, err := loadInputs(ctx, flags)
	if err != nil {
		return err
	}
	result, err := sv.Run(in, opts)
	if err != nil {
		return err
	}
	result.Calls = restrictCalls(result.Calls, regions, kinds, &result.Stats)
	if flags.mappingsPath != "" {
		if err := writeMappingsTSV(ctx, flags.mappingsPath, result.Mappings); err != nil {
			return err
		}
	}
	if flags.rioOutputPath != "" {
		if err := writeCandidates(ctx, flags.rioOutputPath, result.Candidates, opts); err != nil {
			return err
		}
	}
	if err := writeTSV(ctx, flags.outPath, result.Calls); err != nil {
		return err
	}
	log.Printf("Stats: %d final calls, %d contigs skipped", len(result.Calls), len(result.ContigErrors))
	return nil
}

// refilter reads candidates from a recordio dump. Options not set on the
// command line are taken from the dump. regions and kinds may be nil.
func refilter(ctx context.Context, rioPath, outPath string, flagOpts sv.Opts, set map[string]bool, regions sv.RegionSet, kinds map[sv.Kind]bool) error {
	dumpOpts, candidates, err := readCandidates(ctx, rioPath)
	if err != nil {
		return err
	}
	opts := mergeOpts(dumpOpts, flagOpts, set)
	stats := sv.Stats{MergedCalls: len(candidates)}
	calls := sv.Refilter(candidates, opts, &stats)
	calls = restrictCalls(calls, regions, kinds, &stats)
	log.Printf("Stats: %v", stats)
	return writeTSV(ctx, outPath, calls)
}

// filterSetters copies each flag of registerFilterOpts from src to dst.
var filterSetters = map[string]func(dst *sv.Opts, src sv.Opts){
	"min-support":                   func(dst *sv.Opts, src sv.Opts) { dst.MinSupport = src.MinSupport },
	"max-homol-len":                 func(dst *sv.Opts, src sv.Opts) { dst.MaxHomolLen = src.MaxHomolLen },
	"max-novel-len":                 func(dst *sv.Opts, src sv.Opts) { dst.MaxNovelLen = src.MaxNovelLen },
	"min-tiling-novel-len":          func(dst *sv.Opts, src sv.Opts) { dst.MinTilingNovelLen = src.MinTilingNovelLen },
	"no-utr":                        func(dst *sv.Opts, src sv.Opts) { dst.NoUTR = src.NoUTR },
	"include-nonsense-fusion":       func(dst *sv.Opts, src sv.Opts) { dst.IncludeNonsenseFusion = src.IncludeNonsenseFusion },
	"include-non-exon-bound-fusion": func(dst *sv.Opts, src sv.Opts) { dst.IncludeNonExonBoundFusion = src.IncludeNonExonBoundFusion },
	"include-noncoding-fusion":      func(dst *sv.Opts, src sv.Opts) { dst.IncludeNoncodingFusion = src.IncludeNoncodingFusion },
	"include-read-through":          func(dst *sv.Opts, src sv.Opts) { dst.IncludeReadThrough = src.IncludeReadThrough },
	"sort-by-coord":                 func(dst *sv.Opts, src sv.Opts) { dst.SortByCoord = src.SortByCoord },
}

// mergeOpts overrides the filtering options in base with the ones explicitly
// set on the command line. Options that affect calling are kept from base.
func mergeOpts(base, flagOpts sv.Opts, set map[string]bool) sv.Opts {
	opts := base
	for name, apply := range filterSetters {
		if set[name] {
			apply(&opts, flagOpts)
		}
	}
	return opts
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-contigsv",
		Short:    "Call structural variants, fusions and splice variants from assembled contigs",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdCall(sv.Genome, "Call genomic rearrangements from genome contigs"),
			newCmdCall(sv.Transcriptome, "Call fusions, tandem duplications and indels from transcript contigs"),
			newCmdCall(sv.Splice, "Call novel splice variants from transcript contigs"),
			newCmdRefilter(),
		},
	}
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
