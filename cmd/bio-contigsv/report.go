package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/contigsv/sv"
	"github.com/klauspost/compress/gzip"
)

// contig_break columns are contig boundaries on the first contig listed in
// the junctions of a call, which is not always the first of contigs.
var tsvHeader = []string{
	"id", "kind",
	"chrom1", "pos1", "strand1", "orient1", "contig_break1", "gene1", "transcript1", "exon1", "region1", "exon_bound1",
	"chrom2", "pos2", "strand2", "orient2", "contig_break2", "gene2", "transcript2", "exon2", "region2", "exon_bound2",
	"size", "repeat_unit", "homology", "novel_seq", "support", "flanking_pairs", "tiled",
	"known", "ambiguous", "exon_bound", "in_frame", "contigs",
	"probe1", "probe2", "subseq1", "subseq2",
}

const sideColumns = 10

var mappingHeader = []string{"contig", "gene", "transcript", "coverage"}

// dot replaces empty values, which tsv readers would otherwise collapse.
func dot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

func writeSide(w *tsv.Writer, c *sv.VariantCall, i int) {
	if i >= c.NBreakpoints {
		for j := 0; j < sideColumns; j++ {
			w.WriteString(".")
		}
		return
	}
	bp := &c.Breakpoints[i]
	side := &c.Annot.Sides[i]
	w.WriteString(bp.Ref)
	w.WriteInt64(int64(bp.Pos + 1))
	w.WriteString(bp.Strand.String())
	if bp.Orient != 0 {
		w.WriteByte(bp.Orient)
	} else {
		w.WriteString(".")
	}
	w.WriteInt64(int64(bp.ContigPos))
	w.WriteString(dot(side.Gene))
	w.WriteString(dot(side.Transcript))
	if side.Exon > 0 {
		w.WriteInt64(int64(side.Exon))
	} else {
		w.WriteString(".")
	}
	w.WriteString(side.Region.String())
	w.WriteString(strconv.FormatBool(side.ExonBound))
}

// writeCalls writes one TSV line per call, with a header line. Positions are
// 1-based.
func writeCalls(out io.Writer, calls []sv.VariantCall) error {
	w := tsv.NewWriter(out)
	w.WriteString(strings.Join(tsvHeader, "\t"))
	if err := w.EndLine(); err != nil {
		return err
	}
	for i := range calls {
		c := &calls[i]
		w.WriteString(c.ID)
		w.WriteString(c.Kind.String())
		writeSide(w, c, 0)
		writeSide(w, c, 1)
		w.WriteInt64(int64(c.Size))
		w.WriteString(dot(c.RepeatUnit))
		w.WriteString(dot(c.Homology))
		w.WriteString(dot(c.Novel))
		w.WriteInt64(int64(c.Support))
		w.WriteInt64(int64(c.Flanking))
		w.WriteString(strconv.FormatBool(c.Tiled))
		w.WriteString(strconv.FormatBool(c.Annot.Known))
		w.WriteString(strconv.FormatBool(c.Annot.Ambiguous))
		w.WriteString(strconv.FormatBool(c.Annot.ExonBound))
		w.WriteString(strconv.FormatBool(c.Annot.InFrame))
		w.WriteString(strings.Join(c.Contigs, ","))
		w.WriteString(dot(c.Probes[0]))
		w.WriteString(dot(c.Probes[1]))
		w.WriteString(dot(c.Subseqs[0]))
		w.WriteString(dot(c.Subseqs[1]))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeMappings writes one TSV line per contig mapping, with a header line.
// Coverages are listed in transcript order.
func writeMappings(out io.Writer, mappings []sv.Mapping) error {
	w := tsv.NewWriter(out)
	w.WriteString(strings.Join(mappingHeader, "\t"))
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, m := range mappings {
		w.WriteString(m.Contig)
		w.WriteString(dot(strings.Join(m.Genes, ",")))
		w.WriteString(dot(strings.Join(m.Transcripts, ",")))
		covs := make([]string, len(m.Coverages))
		for i, c := range m.Coverages {
			covs[i] = strconv.FormatFloat(c, 'f', 2, 64)
		}
		w.WriteString(dot(strings.Join(covs, ",")))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeTSV writes calls to path, or to stdout when path is empty. A ".gz"
// suffix gzips the output.
func writeTSV(ctx context.Context, path string, calls []sv.VariantCall) error {
	if err := writeFile(ctx, path, func(w io.Writer) error { return writeCalls(w, calls) }); err != nil {
		return err
	}
	log.Printf("Wrote %d calls to %s", len(calls), path)
	return nil
}

// writeMappingsTSV writes contig mappings to path. A ".gz" suffix gzips the
// output.
func writeMappingsTSV(ctx context.Context, path string, mappings []sv.Mapping) error {
	if err := writeFile(ctx, path, func(w io.Writer) error { return writeMappings(w, mappings) }); err != nil {
		return err
	}
	log.Printf("Wrote %d contig mappings to %s", len(mappings), path)
	return nil
}

func writeFile(ctx context.Context, path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	var w io.Writer = out.Writer(ctx)
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	once := errors.Once{}
	once.Set(write(w))
	if gz != nil {
		once.Set(gz.Close())
	}
	once.Set(out.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}
