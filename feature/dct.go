package feature

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/simd"
)

// DCTPlan holds the cosine table of a DCT-II that skips coefficient 0.
// Row r produces cepstral coefficient r+1.
type DCTPlan struct {
	Order int
	Bands int
	Table []float64 // [Order*Bands] row-major
}

// NewDCTPlan precomputes cos((j+0.5)·(r+1)·π/bands) for r < order, j < bands.
func NewDCTPlan(order, bands int) *DCTPlan {
	t := &DCTPlan{
		Order: order,
		Bands: bands,
		Table: make([]float64, order*bands),
	}
	for r := 0; r < order; r++ {
		row := t.Table[r*bands : (r+1)*bands]
		for j := range row {
			row[j] = math.Cos((float64(j) + 0.5) * float64(r+1) * math.Pi / float64(bands))
		}
	}
	return t
}

// Row returns the cosine row for output coefficient r.
func (t *DCTPlan) Row(r int) []float64 {
	return t.Table[r*t.Bands : (r+1)*t.Bands]
}

// Apply writes Order cepstral coefficients of logMel into dst.
func (t *DCTPlan) Apply(logMel, dst []float64) {
	for r := 0; r < t.Order; r++ {
		dst[r] = simd.Dot(t.Row(r), logMel)
	}
}
