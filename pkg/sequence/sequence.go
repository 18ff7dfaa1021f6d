package sequence

// Gap is the alignment gap character.
const Gap = '-'

// Unknown marks a residue that could not be determined.
const Unknown = 'X'

// Sequence is a named residue string.
type Sequence struct {
	Name     string
	Residues string
}

// Len returns the number of residues, gaps included.
func (s Sequence) Len() int {
	return len(s.Residues)
}

// DedupeByResidues collapses records sharing identical residues. The name kept
// for each residue string is the last one seen; records are ordered by the
// first time their residue string was encountered.
func DedupeByResidues(seqs []Sequence) []Sequence {
	index := make(map[string]int, len(seqs))
	out := make([]Sequence, 0, len(seqs))
	for _, s := range seqs {
		if i, ok := index[s.Residues]; ok {
			out[i].Name = s.Name
			continue
		}
		index[s.Residues] = len(out)
		out = append(out, s)
	}

	return out
}

// UniqueFirst is like DedupeByResidues but keeps the first name seen for each
// residue string.
func UniqueFirst(seqs []Sequence) []Sequence {
	seen := make(map[string]struct{}, len(seqs))
	out := make([]Sequence, 0, len(seqs))
	for _, s := range seqs {
		if _, ok := seen[s.Residues]; ok {
			continue
		}
		seen[s.Residues] = struct{}{}
		out = append(out, s)
	}

	return out
}

// Residues returns the residue strings of seqs in order.
func Residues(seqs []Sequence) []string {
	out := make([]string, len(seqs))
	for i, s := range seqs {
		out[i] = s.Residues
	}

	return out
}
