package geometry

import "testing"

func TestIndexIntersecting(t *testing.T) {
	idx := NewIndex([]BoundingBox{
		{0, 10, 0, 10},
		{20, 30, 20, 30},
		{5, 25, 5, 25},
		{40, 40, 0, 10}, // invalid, skipped
	})

	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}

	tests := []struct {
		name  string
		query BoundingBox
		want  []BoundingBox
	}{
		{"corner", BoundingBox{0, 6, 0, 6}, []BoundingBox{{0, 10, 0, 10}, {5, 25, 5, 25}}},
		{"touching only", BoundingBox{10, 20, 0, 5}, nil},
		{"everything", BoundingBox{0, 100, 0, 100}, []BoundingBox{{0, 10, 0, 10}, {20, 30, 20, 30}, {5, 25, 5, 25}}},
		{"nothing", BoundingBox{50, 60, 50, 60}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Intersecting(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("hit %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	if idx.Len() != 0 || idx.Intersecting(BoundingBox{0, 1, 0, 1}) != nil {
		t.Error("nil index should behave as empty")
	}
}
