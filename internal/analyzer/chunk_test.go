package analyzer

import (
	"image"
	"testing"

	"github.com/ivlev/cyoaseg/internal/geometry"
)

func TestSubChunksUniformImage(t *testing.T) {
	page := newPage(100, 100, white)

	for _, policy := range []Policy{Hierarchical, Greedy} {
		t.Run(policy.String(), func(t *testing.T) {
			chunks := NewChunk(page).SubChunks(SplitParams{MinSize: 10, LineThickness: 2, Axis: Rows, Policy: policy})
			if len(chunks) != 1 {
				t.Fatalf("got %d chunks, want 1", len(chunks))
			}
			if got := chunks[0].Box(); got != (geometry.BoundingBox{XMin: 0, XMax: 100, YMin: 0, YMax: 100}) {
				t.Errorf("chunk = %v, want the whole page", got)
			}
		})
	}
}

func TestSubChunksTerminal(t *testing.T) {
	page := newPage(100, 10, white)
	if chunks := NewChunk(page).SubChunks(SplitParams{MinSize: 10, Axis: Rows}); chunks != nil {
		t.Errorf("extent equal to min size must be terminal, got %d chunks", len(chunks))
	}
}

// twoBlockPage draws two dark bands inside a chunk placed at (20,50) of a
// larger page: chunk rows 10-39 and 70-109, columns 10-89.
func twoBlockPage() (*image.NRGBA, geometry.BoundingBox) {
	page := newPage(140, 170, white)
	fillRect(page, image.Rect(30, 60, 110, 90), black)
	fillRect(page, image.Rect(30, 120, 110, 160), black)
	return page, geometry.BoundingBox{XMin: 20, XMax: 120, YMin: 50, YMax: 170}
}

func TestSubChunksAbsoluteOffsets(t *testing.T) {
	page, area := twoBlockPage()
	chunk := NewChunk(page).Crop(area)
	if chunk.X != 20 || chunk.Y != 50 || chunk.Width != 100 || chunk.Height != 120 {
		t.Fatalf("crop = %+v", chunk.Box())
	}

	for _, policy := range []Policy{Hierarchical, Greedy} {
		t.Run(policy.String(), func(t *testing.T) {
			children := chunk.SubChunks(SplitParams{MinSize: 20, LineThickness: 2, Axis: Rows, Policy: policy})
			want := []geometry.BoundingBox{
				{XMin: 20, XMax: 120, YMin: 50, YMax: 104},
				{XMin: 20, XMax: 120, YMin: 104, YMax: 170},
			}
			if len(children) != len(want) {
				t.Fatalf("got %d children, want %d", len(children), len(want))
			}
			for i, c := range children {
				if c.Box() != want[i] {
					t.Errorf("child %d = %v, want %v", i, c.Box(), want[i])
				}
				if c.Image().Bounds() != want[i].Rect() {
					t.Errorf("child %d pixels = %v", i, c.Image().Bounds())
				}
				if !c.Valid() {
					t.Errorf("child %d invalid", i)
				}
			}
		})
	}
}

// excludedPage draws dark bands at rows 5-34 and 66-94 of a 100x100 chunk
// placed at row offset y0; the only real separator is centred on row 50.
func excludedPage(y0 int) *Chunk {
	page := newPage(100, y0+100, white)
	fillRect(page, image.Rect(10, y0+5, 90, y0+35), black)
	fillRect(page, image.Rect(10, y0+66, 90, y0+95), black)
	return NewChunk(page).Crop(geometry.BoundingBox{XMin: 0, XMax: 100, YMin: y0, YMax: y0 + 100})
}

func TestSubChunksRespectsExclusions(t *testing.T) {
	tests := []struct {
		name       string
		y0         int
		exclusion  geometry.BoundingBox
		wantChunks int
	}{
		{"no exclusion splits at 50", 0, geometry.BoundingBox{}, 2},
		{"box over the separator", 0, geometry.BoundingBox{XMin: 0, XMax: 100, YMin: 40, YMax: 60}, 1},
		{"absolute box on offset chunk", 200, geometry.BoundingBox{XMin: 0, XMax: 100, YMin: 240, YMax: 260}, 1},
		{"relative coordinates do not apply", 200, geometry.BoundingBox{XMin: 0, XMax: 100, YMin: 40, YMax: 60}, 2},
		{"box outside the chunk columns", 0, geometry.BoundingBox{XMin: 200, XMax: 300, YMin: 40, YMax: 60}, 2},
	}

	for _, tt := range tests {
		for _, policy := range []Policy{Hierarchical, Greedy} {
			t.Run(tt.name+"/"+policy.String(), func(t *testing.T) {
				chunk := excludedPage(tt.y0)
				p := SplitParams{MinSize: 10, LineThickness: 2, Axis: Rows, Policy: policy}
				if tt.exclusion.Valid() {
					p.Exclusions = geometry.NewIndex([]geometry.BoundingBox{tt.exclusion})
				}

				children := chunk.SubChunks(p)
				if len(children) != tt.wantChunks {
					t.Fatalf("got %d chunks, want %d", len(children), tt.wantChunks)
				}

				covered := 0
				for _, c := range children {
					covered += c.Height
					if !c.Valid() {
						t.Errorf("invalid chunk %v", c.Box())
					}
					if p.Exclusions.Len() == 0 || !chunk.Box().Intersects(tt.exclusion) {
						continue
					}
					for _, edge := range []int{c.Y, c.Y + c.Height} {
						if tt.exclusion.YMin < edge && edge < tt.exclusion.YMax {
							t.Errorf("boundary %d cuts the exclusion box %v", edge, tt.exclusion)
						}
					}
				}
				if covered != 100 {
					t.Errorf("children cover %d rows, want 100", covered)
				}
			})
		}
	}
}

func TestSubChunksColumnsWithMargin(t *testing.T) {
	page := newPage(120, 100, white)
	fillRect(page, image.Rect(10, 20, 50, 80), black)
	fillRect(page, image.Rect(70, 20, 110, 80), black)
	// border noise in the top and bottom rows would make every column
	// non-uniform without the margin
	fillRect(page, image.Rect(0, 0, 120, 2), black)
	fillRect(page, image.Rect(0, 98, 120, 100), black)

	chunk := NewChunk(page)
	if got := chunk.SubChunks(SplitParams{MinSize: 20, LineThickness: 2, Axis: Columns}); len(got) != 1 {
		t.Errorf("without margin got %d chunks, want 1", len(got))
	}

	children := chunk.SubChunks(SplitParams{MinSize: 20, LineThickness: 2, Axis: Columns, Margin: 5})
	if len(children) != 2 {
		t.Fatalf("with margin got %d chunks, want 2", len(children))
	}
	if children[0].Box() != (geometry.BoundingBox{XMin: 0, XMax: 59, YMin: 0, YMax: 100}) {
		t.Errorf("left = %v", children[0].Box())
	}
	if children[1].Box() != (geometry.BoundingBox{XMin: 59, XMax: 120, YMin: 0, YMax: 100}) {
		t.Errorf("right = %v", children[1].Box())
	}

	// fractional margin: 0.05 of 100 rows is 5
	if got := chunk.SubChunks(SplitParams{MinSize: 20, LineThickness: 2, Axis: Columns, Margin: 0.05}); len(got) != 2 {
		t.Errorf("fractional margin got %d chunks, want 2", len(got))
	}
}

func TestCrop(t *testing.T) {
	chunk := NewChunk(newPage(50, 50, white))

	if c := chunk.Crop(geometry.BoundingBox{XMin: 40, XMax: 80, YMin: 10, YMax: 20}); c.Box() != (geometry.BoundingBox{XMin: 40, XMax: 50, YMin: 10, YMax: 20}) {
		t.Errorf("crop not clipped: %v", c.Box())
	}
	if c := chunk.Crop(geometry.BoundingBox{XMin: 60, XMax: 80, YMin: 10, YMax: 20}); c != nil {
		t.Errorf("crop outside should be nil, got %v", c.Box())
	}
}

func TestNewChunkConvertsImages(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 30, 20))
	c := NewChunk(gray)
	if c.Width != 30 || c.Height != 20 || c.Image() == nil {
		t.Errorf("unexpected chunk %+v", c.Box())
	}
}
