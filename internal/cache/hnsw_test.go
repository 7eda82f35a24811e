package cache

import (
	"testing"

	"github.com/fotoklaser/face-finder/internal/face"
)

func TestFaceIndexSearch(t *testing.T) {
	c := openCache(t)

	put := func(item string, embedding []float32) {
		t.Helper()
		err := c.Put(GroupKeyForName(item), item, Entry{
			Fingerprint: "fp-" + item,
			Faces:       []face.Face{{Embedding: embedding}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	put("alice001.jpg", []float32{1, 0, 0})
	put("bob001.jpg", []float32{0, 1, 0})
	put("carol001.jpg", []float32{0, 0, 1})

	fi := NewFaceIndex()
	if err := fi.Build(c); err != nil {
		t.Fatal(err)
	}
	if fi.Len() != 3 {
		t.Fatalf("indexed %d faces, want 3", fi.Len())
	}

	faces, sims, err := fi.Search([]float32{0.99, 0.1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(faces))
	}
	if faces[0].Item != "alice001.jpg" {
		t.Errorf("nearest = %s, want alice001.jpg", faces[0].Item)
	}
	if sims[0] < 0.9 {
		t.Errorf("similarity %v unexpectedly low", sims[0])
	}
}

func TestFaceIndexEmpty(t *testing.T) {
	fi := NewFaceIndex()
	if err := fi.Build(openCache(t)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := fi.Search([]float32{1, 0, 0}, 3); err == nil {
		t.Error("expected error searching an empty index")
	}
}
