package materializer

import "testing"

func TestChunkBySplitsEvenly(t *testing.T) {
	items := make([]int, 155)
	chunks := chunkBy(items, 50)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	want := []int{50, 50, 50, 5}
	for i, chunk := range chunks {
		if len(chunk) != want[i] {
			t.Fatalf("chunk %d: expected %d items, got %d", i, want[i], len(chunk))
		}
	}
}

func TestChunkByExactMultiple(t *testing.T) {
	chunks := chunkBy(make([]int, 100), 50)
	if len(chunks) != 2 || len(chunks[0]) != 50 || len(chunks[1]) != 50 {
		t.Fatalf("unexpected chunking: %d chunks", len(chunks))
	}
}

func TestChunkByEmpty(t *testing.T) {
	if chunks := chunkBy([]int(nil), 50); chunks != nil {
		t.Fatalf("expected nil for empty input, got %v", chunks)
	}
}

func TestChunkByNonPositiveSize(t *testing.T) {
	chunks := chunkBy(make([]int, 3), 0)
	if len(chunks) != 1 || len(chunks[0]) != 3 {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}
