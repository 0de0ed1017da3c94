// Package gtf reads a GENCODE-style GTF annotation into transcripts and
// indexes them for coordinate lookups. The same index, built from a
// supplementary annotation, tells which splice junctions and exons are
// already known.
package gtf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/contigsv/sv"
)

// Opts controls which transcripts Read keeps.
type Opts struct {
	// CodingOnly drops transcripts without a coding biotype.
	CodingOnly bool
	// SkipChroms lists chromosomes whose transcripts are dropped, e.g. "chrM".
	SkipChroms []string
}

// gtfRecord will store data read from one line of the gencode file
type gtfRecord struct {
	Chrom    string
	Source   string
	Molecule string
	Start    int
	Stop     int
	Score    string // unused floating point value, but may be "."
	Strand   string
	Frame    string
	Fields   string
}

// parseInfoFields parses the attribute column, `key "value"; key "value";`,
// into parsed. Existing entries are removed.
func parseInfoFields(parsed map[string]string, info string) {
	for k := range parsed {
		delete(parsed, k)
	}
	for _, field := range strings.Split(strings.TrimSpace(info), ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		pair := strings.SplitN(field, " ", 2)
		if len(pair) != 2 {
			continue
		}
		if _, ok := parsed[pair[0]]; ok {
			// Repeated keys such as "tag" keep their first value.
			continue
		}
		parsed[pair[0]] = strings.Trim(pair[1], "\"")
	}
}

// Obtained from https://www.gencodegenes.org/gencode_biotypes.html
var codingBiotypes = map[string]bool{
	"protein_coding":          true,
	"nonsense_mediated_decay": true,
	"non_stop_decay":          true,
	"IG_C_gene":               true,
	"IG_D_gene":               true,
	"IG_J_gene":               true,
	"IG_LV_gene":              true,
	"IG_V_gene":               true,
	"TR_C_gene":               true,
	"TR_J_gene":               true,
	"TR_V_gene":               true,
	"TR_D_gene":               true,
	"polymorphic_pseudogene":  true,
}

func readRawGTF(ctx context.Context, path string) (records []gtfRecord, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	scanner := tsv.NewReader(bufio.NewReaderSize(inr, 64<<10))
	scanner.Comment = '#'
	scanner.LazyQuotes = true
	for {
		var line gtfRecord
		if err := scanner.Read(&line); err != nil {
			if err != io.EOF {
				return nil, errors.E(err, path)
			}
			break
		}
		switch line.Molecule {
		case "gene", "transcript", "exon", "CDS", "start_codon", "stop_codon":
			records = append(records, line)
		}
	}
	return records, nil
}

type geneInfo struct {
	name   string
	chrom  string
	strand sv.Strand
	span   sv.Span
	index  int
}

// Read parses a GTF file. GTF coordinates (1-based, closed) are converted to
// 0-based half-open spans. Transcripts are returned in ascending ID order.
func Read(ctx context.Context, path string, opts Opts) ([]*sv.Transcript, error) {
	records, err := readRawGTF(ctx, path)
	if err != nil {
		return nil, err
	}
	return build(records, opts, path)
}

func build(records []gtfRecord, opts Opts, path string) ([]*sv.Transcript, error) {
	skip := map[string]bool{}
	for _, c := range opts.SkipChroms {
		skip[c] = true
	}
	var (
		fields      = map[string]string{}
		genes       = map[string]*geneInfo{}
		transcripts = map[string]*sv.Transcript{}
		geneOf      = map[*sv.Transcript]*geneInfo{}
		hasCDS      = map[*sv.Transcript]bool{}
	)
	gene := func(line *gtfRecord, strand sv.Strand) *geneInfo {
		id := fields["gene_id"]
		g, ok := genes[id]
		if !ok {
			name := fields["gene_name"]
			if name == "" {
				name = id
			}
			g = &geneInfo{name: name, chrom: line.Chrom, strand: strand, span: sv.Span{Start: line.Start - 1, End: line.Stop}}
			genes[id] = g
		}
		return g
	}
	for i := range records {
		line := &records[i]
		if skip[line.Chrom] {
			continue
		}
		parseInfoFields(fields, line.Fields)
		strand, ok := sv.ParseStrand(line.Strand)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: %s:%d: bad strand %q", path, line.Chrom, line.Start, line.Strand))
		}
		if line.Stop < line.Start || line.Start < 1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: %s:%d-%d: bad range", path, line.Chrom, line.Start, line.Stop))
		}
		span := sv.Span{Start: line.Start - 1, End: line.Stop}
		g := gene(line, strand)
		if line.Molecule == "gene" {
			g.span = span
			continue
		}
		id := fields["transcript_id"]
		if id == "" {
			continue
		}
		biotype := fields["transcript_type"]
		if biotype == "" {
			biotype = fields["transcript_biotype"]
		}
		coding := codingBiotypes[biotype]
		if opts.CodingOnly && !coding {
			continue
		}
		t, ok := transcripts[id]
		if !ok {
			t = &sv.Transcript{ID: id, Gene: g.name, Chrom: line.Chrom, Strand: strand, Coding: coding}
			transcripts[id] = t
			geneOf[t] = g
		}
		switch line.Molecule {
		case "exon":
			t.Exons = append(t.Exons, span)
		case "CDS", "start_codon", "stop_codon":
			if !hasCDS[t] {
				t.CDS = span
				hasCDS[t] = true
			} else {
				if span.Start < t.CDS.Start {
					t.CDS.Start = span.Start
				}
				if span.End > t.CDS.End {
					t.CDS.End = span.End
				}
			}
		}
	}

	out := make([]*sv.Transcript, 0, len(transcripts))
	for _, t := range transcripts {
		if len(t.Exons) == 0 {
			continue
		}
		sort.Slice(t.Exons, func(i, j int) bool { return t.Exons[i].Start < t.Exons[j].Start })
		g := geneOf[t]
		sp := t.Span()
		if sp.Start < g.span.Start {
			g.span.Start = sp.Start
		}
		if sp.End > g.span.End {
			g.span.End = sp.End
		}
		out = append(out, t)
	}

	genesByChrom := map[string][]*geneInfo{}
	for _, g := range genes {
		genesByChrom[g.chrom] = append(genesByChrom[g.chrom], g)
	}
	for _, gs := range genesByChrom {
		sort.SliceStable(gs, func(i, j int) bool {
			if gs[i].span.Start != gs[j].span.Start {
				return gs[i].span.Start < gs[j].span.Start
			}
			return gs[i].name < gs[j].name
		})
		for i, g := range gs {
			g.index = i
		}
	}
	for _, t := range out {
		g := geneOf[t]
		t.GeneIndex = g.index
		t.GeneSpan = g.span
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	log.Printf("%s: %d genes, %d transcripts", path, len(genes), len(out))
	return out, nil
}
