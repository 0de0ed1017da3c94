package fasta_test

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/contigsv/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

const fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "ACGT\r\n" + "ACGT\n"

func TestGet(t *testing.T) {
	tests := []struct {
		seq     string
		start   uint64
		end     uint64
		want    string
		wantErr bool
	}{
		{"seq1", 1, 2, "C", false},
		{"seq1", 1, 6, "CGTAC", false},
		{"seq1", 0, 12, "ACGTACGTACGT", false},
		{"seq1", 10, 12, "GT", false},
		{"seq2", 0, 8, "ACGTACGT", false},
		{"seq2", 2, 5, "GTA", false},
		{"seq0", 0, 1, "", true},
		{"seq1", 10, 13, "", true},
		{"seq1", 4, 3, "", true},
	}
	fa, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	for _, tt := range tests {
		got, err := fa.Get(tt.seq, tt.start, tt.end)
		expect.EQ(t, err != nil, tt.wantErr, "%s:%d-%d: %v", tt.seq, tt.start, tt.end, err)
		expect.EQ(t, got, tt.want)
	}
}

func TestLen(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	n, err := fa.Len("seq1")
	assert.NoError(t, err)
	expect.EQ(t, n, uint64(12))
	n, err = fa.Len("seq2")
	assert.NoError(t, err)
	expect.EQ(t, n, uint64(8))
	expect.EQ(t, fa.SeqNames(), []string{"seq1", "seq2"})
}

func TestUnknownSequence(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	_, err = fa.Len("chrZ")
	expect.True(t, errors.Cause(err) == fasta.ErrUnknownSequence)
	_, err = fa.Get("chrZ", 0, 1)
	expect.True(t, errors.Cause(err) == fasta.ErrUnknownSequence)
	_, err = fa.Get("seq1", 0, 100)
	expect.True(t, err != nil && errors.Cause(err) != fasta.ErrUnknownSequence)
}

func TestMalformed(t *testing.T) {
	for _, data := range []string{
		"ACGT\n>seq1\nACGT\n",
		">seq1\nACGT\n>seq1\nA\n",
		">\nACGT\n",
	} {
		_, err := fasta.New(strings.NewReader(data))
		expect.NotNil(t, err, data)
	}
	fa, err := fasta.New(strings.NewReader(""))
	assert.NoError(t, err)
	expect.EQ(t, len(fa.SeqNames()), 0)
}

func TestOpen(t *testing.T) {
	ctx := vcontext.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	plain := filepath.Join(tempDir, "contigs.fa")
	f, err := os.Create(plain)
	assert.NoError(t, err)
	_, err = f.WriteString(fastaData)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())

	gz := filepath.Join(tempDir, "contigs.fa.gz")
	f, err = os.Create(gz)
	assert.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	for _, path := range []string{plain, gz} {
		fa, err := fasta.Open(ctx, path)
		assert.NoError(t, err, path)
		got, err := fa.Get("seq2", 2, 5)
		assert.NoError(t, err)
		expect.EQ(t, got, "GTA")
	}

	_, err = fasta.Open(ctx, filepath.Join(tempDir, "missing.fa"))
	expect.NotNil(t, err)
}
