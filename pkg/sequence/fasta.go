package sequence

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// allow very long single-line alignments (64 MiB)
const maxLine = 64 * 1024 * 1024

// Parse reads FASTA records from r. Files go through ReadFile; Parse serves
// in-memory text and reports the line of a malformed record. A record starts at a line beginning with
// '>'; the rest of that line is the name and every following line up to the
// next header is trimmed and appended to the residues. Blank lines are
// skipped. Residue lines appearing before the first header are an ErrFormat.
func Parse(r io.Reader) ([]Sequence, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		out     []Sequence
		current *Sequence
		body    strings.Builder
		lineNo  int
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Residues = body.String()
		out = append(out, *current)
		body.Reset()
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			current = &Sequence{Name: strings.TrimSpace(line[1:])}
			continue
		}
		if current == nil {
			return nil, errors.Wrapf(ErrFormat, "line %d: residues before first header", lineNo)
		}
		body.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "fasta scan")
	}
	flush()

	return out, nil
}

// ParseString parses FASTA text held in memory.
func ParseString(text string) ([]Sequence, error) {
	return Parse(strings.NewReader(text))
}

// Serialize writes seqs to w as FASTA, one residue line per record, in input
// order.
func Serialize(w io.Writer, seqs []Sequence) error {
	bw := bufio.NewWriter(w)
	for _, s := range seqs {
		if _, err := bw.WriteString(">" + s.Name + "\n" + s.Residues + "\n"); err != nil {
			return errors.Wrapf(err, "unable to write record %s", s.Name)
		}
	}

	return errors.Wrap(bw.Flush(), "unable to flush fasta output")
}

// SerializeString returns the FASTA text of seqs.
func SerializeString(seqs []Sequence) string {
	var sb strings.Builder
	// strings.Builder never returns a write error
	_ = Serialize(&sb, seqs)

	return sb.String()
}

// ReadFile parses the FASTA file at path. Compressed files are detected
// from their content and "-" reads standard input. An empty file holds no
// records.
func ReadFile(path string) ([]Sequence, error) {
	if path != "-" {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open %s", path)
		}
		if fi.Size() == 0 {
			return nil, nil
		}
	}

	reader, err := fastx.NewReader(seq.Unlimit, path, "")
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer reader.Close()

	var out []Sequence
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(ErrFormat, "%s: %v", path, err)
		}
		if len(record.Seq.Qual) > 0 {
			return nil, errors.Wrapf(ErrFormat, "%s: record %s is fastq", path, record.ID)
		}
		out = append(out, Sequence{
			Name:     strings.TrimSpace(string(record.Name)),
			Residues: strings.Join(strings.Fields(string(record.Seq.Seq)), ""),
		})
	}

	return out, nil
}

// WriteFile writes seqs to path as FASTA, gzip-compressed when path ends in
// .gz.
func WriteFile(path string, seqs []Sequence) (err error) {
	w, err := xopen.Wopen(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "unable to close %s", path)
		}
	}()

	return Serialize(w, seqs)
}
