package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Hash is a hex-encoded sha256 digest
type Hash string

func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Fingerprinter streams labelled numeric columns into a Hash.
// Labels are NUL-terminated so ("AB", "C") and ("A", "BC") differ.
type Fingerprinter struct {
	h    hash.Hash
	word [8]byte
}

func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{h: sha256.New()}
}

// Label writes s followed by a NUL separator
func (f *Fingerprinter) Label(s string) {
	f.h.Write([]byte(s))
	f.h.Write([]byte{0})
}

// Floats writes the IEEE-754 bits of each value, little endian
func (f *Fingerprinter) Floats(values []float64) {
	for _, v := range values {
		binary.LittleEndian.PutUint64(f.word[:], math.Float64bits(v))
		f.h.Write(f.word[:])
	}
}

func (f *Fingerprinter) Sum() Hash {
	return Hash(hex.EncodeToString(f.h.Sum(nil)))
}
