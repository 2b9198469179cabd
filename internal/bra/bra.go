// Package bra implements the branch rewriting filter for binaries: BCJ
// and its architecture-specific variants (ARM, ARM64, ARM-Thumb, IA-64,
// PPC, SPARC) all convert absolute branch targets to relative (or back)
// so the bulk compressor sees more repetition in a disassembled binary.
package bra

// converter is implemented by each architecture's branch rewriter
// (bcj.go, arm.go, arm64.go, armthumb.go, ia64.go, ppc.go, sparc.go).
// Size reports how many trailing bytes of a buffer might still hold an
// incomplete instruction and must be held back across Read calls;
// Convert rewrites branch targets in place over b and returns how many
// leading bytes of b were actually processed.
type converter interface {
	Size() int
	Convert(b []byte, encoding bool) int
}
