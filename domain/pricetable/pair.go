package pricetable

import (
	"gopairs/domain/core"
)

// Pair is an unordered pair of distinct instruments. First always precedes
// Second in the table's column order.
type Pair struct {
	First  core.InstrumentID `json:"first"`
	Second core.InstrumentID `json:"second"`

	// Column positions in the source table
	I int `json:"-"`
	J int `json:"-"`
}

// String renders the pair as "FIRST/SECOND"
func (p Pair) String() string {
	return string(p.First) + "/" + string(p.Second)
}

// Pairs generates all C(n,2) combinations of ids with i < j, ordered by i then j.
// Fewer than two ids yields an empty slice.
func Pairs(ids []core.InstrumentID) []Pair {
	n := len(ids)
	pairs := make([]Pair, 0, PairCount(n))
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{First: ids[i], Second: ids[j], I: i, J: j})
		}
	}
	return pairs
}

// PairCount returns C(n,2)
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}
