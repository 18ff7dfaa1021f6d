// Package sequence provides the named residue strings the library designer
// works on, together with FASTA parsing and serialisation.
//
// A Sequence is a plain value: every transformation in this module (tiling,
// gap stripping, deduplication) produces new Sequence values and never edits
// residues in place. Names are expected to be unique within a collection by
// convention only.
package sequence
