// Package vectorindex is an exact inner-product index over L2-normalized
// vectors, so scores are cosine similarities.
package vectorindex

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// PadScore is the score of a padding result, below any real similarity.
const PadScore = -math.MaxFloat32

var (
	// ErrEmpty is returned when an index is built from no vectors.
	ErrEmpty = errors.New("vectorindex: no vectors")
	// ErrDimensionMismatch is returned when vector lengths disagree.
	ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")
)

// Index stores normalized vectors row by row.
type Index struct {
	dim  int
	data []float32
}

// New builds an index. Vector ids are their positions in vectors.
func New(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector", ErrDimensionMismatch)
	}

	idx := &Index{dim: dim, data: make([]float32, 0, dim*len(vectors))}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		idx.data = append(idx.data, normalize(v)...)
	}
	return idx, nil
}

// Dim returns the vector dimension.
func (idx *Index) Dim() int { return idx.dim }

// Len returns the number of stored vectors.
func (idx *Index) Len() int { return len(idx.data) / idx.dim }

// Search returns the k best matches for query, best first. When the index
// holds fewer than k vectors the tail is padded with id -1 and PadScore.
func (idx *Index) Search(query []float32, k int) ([]float32, []int, error) {
	if len(query) != idx.dim {
		return nil, nil, fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), idx.dim)
	}
	if k <= 0 {
		return []float32{}, []int{}, nil
	}

	q := normalize(query)
	n := idx.Len()
	ids := make([]int, n)
	all := make([]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = i
		all[i] = dot(q, idx.data[i*idx.dim:(i+1)*idx.dim])
	}
	sort.SliceStable(ids, func(a, b int) bool { return all[ids[a]] > all[ids[b]] })

	scores := make([]float32, k)
	top := make([]int, k)
	for i := 0; i < k; i++ {
		if i < n {
			top[i] = ids[i]
			scores[i] = all[ids[i]]
		} else {
			top[i] = -1
			scores[i] = PadScore
		}
	}
	return scores, top, nil
}

type snapshot struct {
	Dim  int
	Data []float32
}

// Save writes the index to path.
func (idx *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vectorindex: save: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snapshot{Dim: idx.dim, Data: idx.data}); err != nil {
		f.Close()
		return fmt.Errorf("vectorindex: save: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("vectorindex: save: %w", err)
	}
	return nil
}

// Load reads an index written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: load: %w", err)
	}
	defer f.Close()

	var s snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("vectorindex: load: %w", err)
	}
	if s.Dim <= 0 || len(s.Data) == 0 {
		return nil, ErrEmpty
	}
	if len(s.Data)%s.Dim != 0 {
		return nil, fmt.Errorf("vectorindex: load: %w: %d values for dim %d", ErrDimensionMismatch, len(s.Data), s.Dim)
	}
	return &Index{dim: s.Dim, data: s.Data}, nil
}

// normalize returns v scaled to unit length. A zero vector stays zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
