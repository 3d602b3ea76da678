//go:build !(amd64 || arm64 || ppc64 || ppc64le || mips64 || mips64le || riscv64 || s390x || wasm)

package pmap

// wordBits is the machine word width from which initialInfoHashShift,
// stored in each new header, is derived (see layout.go).
const wordBits = 32
