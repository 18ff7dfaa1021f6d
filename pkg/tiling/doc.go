// Package tiling slices aligned residue strings into fixed-size windows and
// decides which windows are acceptable for synthesis.
//
// A window can be taken literally from the alignment, gaps included, or it can
// span gaps: in that mode the window collects a fixed number of non-gap
// residues and the gaps it walks over are dropped from the result. Each window
// is checked against a validity Policy before it is kept, and the windows of a
// single call are unique by residue content.
//
// Windows are named after their parent with the 1-based start and the
// exclusive end of the span they cover in the parent residues, so window
// "env_3_8" of "env" covers residues[2:8].
package tiling
