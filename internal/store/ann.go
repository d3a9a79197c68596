package store

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/coder/hnsw"

	verrors "github.com/veracite/veracite/internal/errors"
)

// ChunkRef identifies a stored chunk without carrying its content.
type ChunkRef struct {
	DocumentID string
	ChunkIndex int
}

// ScopeANN maintains one HNSW graph per scope as an approximate shortlist
// over the scope's chunk vectors. SQLite remains the source of truth; the
// engine rescans shortlisted chunks with exact cosine before thresholding.
type ScopeANN struct {
	mu         sync.RWMutex
	dimensions int
	graphs     map[string]*scopeGraph
}

// scopeGraph wraps a single HNSW graph with string-key mappings.
type scopeGraph struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]ChunkRef
	nextKey uint64
}

// NewScopeANN creates an empty per-scope ANN index for the given dimension.
func NewScopeANN(dimensions int) *ScopeANN {
	return &ScopeANN{
		dimensions: dimensions,
		graphs:     make(map[string]*scopeGraph),
	}
}

func chunkKey(documentID string, chunkIndex int) string {
	return documentID + "#" + strconv.Itoa(chunkIndex)
}

func newScopeGraph() *scopeGraph {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &scopeGraph{
		graph:  g,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]ChunkRef),
	}
}

// Add inserts or updates one chunk vector in its scope's graph.
// Updates use lazy deletion: the old node stays in the graph but loses its
// key mapping, so it can never surface in results.
func (a *ScopeANN) Add(scope, documentID string, chunkIndex int, vector []float32) error {
	if len(vector) != a.dimensions {
		return verrors.DimensionMismatch(a.dimensions, len(vector))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sg, ok := a.graphs[scope]
	if !ok {
		sg = newScopeGraph()
		a.graphs[scope] = sg
	}

	id := chunkKey(documentID, chunkIndex)
	if oldKey, exists := sg.idMap[id]; exists {
		delete(sg.keyMap, oldKey)
		delete(sg.idMap, id)
	}

	key := sg.nextKey
	sg.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	sg.graph.Add(hnsw.MakeNode(key, vec))
	sg.idMap[id] = key
	sg.keyMap[key] = ChunkRef{DocumentID: documentID, ChunkIndex: chunkIndex}
	return nil
}

// DeleteDocument lazily removes every chunk of the document from the
// scope's graph.
func (a *ScopeANN) DeleteDocument(scope, documentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sg, ok := a.graphs[scope]
	if !ok {
		return
	}
	for key, ref := range sg.keyMap {
		if ref.DocumentID == documentID {
			delete(sg.idMap, chunkKey(ref.DocumentID, ref.ChunkIndex))
			delete(sg.keyMap, key)
		}
	}
}

// Search shortlists up to k chunk references nearest to the query within
// the scope. An unknown scope yields an empty shortlist.
func (a *ScopeANN) Search(scope string, query []float32, k int) ([]ChunkRef, error) {
	if len(query) != a.dimensions {
		return nil, verrors.DimensionMismatch(a.dimensions, len(query))
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	sg, ok := a.graphs[scope]
	if !ok || sg.graph.Len() == 0 {
		return []ChunkRef{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := sg.graph.Search(normalized, k)
	refs := make([]ChunkRef, 0, len(nodes))
	for _, node := range nodes {
		ref, exists := sg.keyMap[node.Key]
		if !exists {
			// Lazily deleted node.
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Len returns the number of live vectors in the scope's graph.
func (a *ScopeANN) Len(scope string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sg, ok := a.graphs[scope]
	if !ok {
		return 0
	}
	return len(sg.idMap)
}

// Rebuild replaces the scope's graph from a full chunk set.
func (a *ScopeANN) Rebuild(scope string, chunks []EmbeddedChunk) error {
	a.mu.Lock()
	sg := newScopeGraph()
	a.graphs[scope] = sg
	a.mu.Unlock()

	for _, ch := range chunks {
		if err := a.Add(scope, ch.DocumentID, ch.ChunkIndex, ch.Vector); err != nil {
			return fmt.Errorf("failed to rebuild scope %q: %w", scope, err)
		}
	}
	return nil
}

// normalizeInPlace normalizes a vector to unit length in place.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
