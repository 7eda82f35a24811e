package cache

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/fotoklaser/face-finder/internal/face"
)

// HNSWMaxNeighbors is the M parameter of the HNSW graph.
const HNSWMaxNeighbors = 16

// IndexedFace identifies one cached face inside the similarity index.
type IndexedFace struct {
	Group     string
	Item      string
	FaceIndex int
	Face      face.Face
}

// FaceIndex is an in-memory approximate-nearest-neighbor index over all
// cached face embeddings. It is cheap to rebuild from the blobs and is not
// persisted.
type FaceIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[int]
	idToFn map[int]IndexedFace
}

// NewFaceIndex creates an empty face index.
func NewFaceIndex() *FaceIndex {
	return &FaceIndex{idToFn: make(map[int]IndexedFace)}
}

// Build populates the index from every face currently in the cache,
// replacing any previous contents.
func (fi *FaceIndex) Build(c *Cache) error {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	idToFn := make(map[int]IndexedFace)
	next := 0
	err := c.WalkFaces(func(group, item string, faceIndex int, f face.Face) {
		if len(f.Embedding) == 0 {
			return
		}
		g.Add(hnsw.MakeNode(next, f.Embedding))
		idToFn[next] = IndexedFace{Group: group, Item: item, FaceIndex: faceIndex, Face: f}
		next++
	})
	if err != nil {
		return err
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.graph = g
	fi.idToFn = idToFn
	return nil
}

// Len returns the number of indexed faces.
func (fi *FaceIndex) Len() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.idToFn)
}

// Search returns the k cached faces nearest to the query embedding together
// with their cosine similarities, most similar first.
func (fi *FaceIndex) Search(query []float32, k int) ([]IndexedFace, []float64, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if fi.graph == nil || len(fi.idToFn) == 0 {
		return nil, nil, errors.New("face index is empty")
	}

	neighbors := fi.graph.Search(query, k)
	faces := make([]IndexedFace, 0, len(neighbors))
	sims := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		indexed, ok := fi.idToFn[n.Key]
		if !ok {
			continue
		}
		faces = append(faces, indexed)
		// Exact similarity from the stored embedding; the graph distance is
		// approximate enough for ranking only.
		sims = append(sims, face.CosineSimilarity(query, indexed.Face.Embedding))
	}
	return faces, sims, nil
}
