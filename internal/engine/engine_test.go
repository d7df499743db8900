package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ivlev/cyoaseg/internal/config"
	"github.com/ivlev/cyoaseg/internal/keywords"
	"github.com/ivlev/cyoaseg/internal/logging"
	"github.com/ivlev/cyoaseg/internal/ocr"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func paintArt(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if x%10 == 0 || y%10 == 0 {
				img.SetNRGBA(x, y, black)
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 13) % 256),
				B: uint8(((x + y) * 5) % 256),
				A: 255,
			})
		}
	}
}

// cyoaPage is a white page with a title bar on top and an illustration
// below it.
func cyoaPage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 300))
	fillRect(img, img.Bounds(), white)
	fillRect(img, image.Rect(20, 20, 120, 40), black)
	paintArt(img, image.Rect(20, 150, 180, 280))
	return img
}

type memSource struct {
	pages []image.Image
	fail  map[int]bool
}

func (m *memSource) PageCount() int { return len(m.pages) }
func (m *memSource) PageName(i int) string { return fmt.Sprintf("page_%d.png", i+1) }
func (m *memSource) Close() error { return nil }
func (m *memSource) GetPageDimensions(i int) (float64, float64, error) {
	b := m.pages[i].Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}
func (m *memSource) RenderPage(i int, _ int) (image.Image, error) {
	if m.fail[i] {
		return nil, errors.New("corrupt page")
	}
	return m.pages[i], nil
}

type fakeOCR struct {
	calls atomic.Int64
	err   error
}

func (f *fakeOCR) Recognize(_ context.Context, img image.Image, _ ocr.Options) ([]ocr.Detection, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	b := img.Bounds()
	return []ocr.Detection{{
		Text: "Choose", Confidence: 0.9,
		Left: b.Min.X, Top: b.Min.Y, Width: min(b.Dx(), 30), Height: min(b.Dy(), 8),
	}}, nil
}

type fakeClassifier struct {
	mu    sync.Mutex
	sizes []image.Rectangle
}

func (f *fakeClassifier) Classify(_ context.Context, img image.Image) (map[string]float64, error) {
	f.mu.Lock()
	f.sizes = append(f.sizes, img.Bounds())
	f.mu.Unlock()
	return map[string]float64{"sword": 0.9, "1girl": 0.8, "noise": 0.1}, nil
}

type staticRanker struct{}

func (staticRanker) Rank(context.Context, string) ([]keywords.Keyword, error) {
	return []keywords.Keyword{{Word: "choose", Score: 0.7}}, nil
}

func near(a, b float64) bool { return a-b < 1e-9 && b-a < 1e-9 }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.Source.MaxWidth = 0
	cfg.Source.MaxWideWidth = 0
	cfg.Sections = config.ChunkConfig{MinSize: 40, LineThickness: 4}
	cfg.Fine = config.ChunkConfig{MinSize: 10, LineThickness: 2}
	cfg.Illustrations.MinSize = 20
	cfg.Illustrations.LineThickness = 2
	cfg.Illustrations.MinImageSize = 30
	cfg.Illustrations.ColorThreshold = 50
	cfg.Illustrations.Recursions = 4
	cfg.OCR.Scale = 1
	cfg.OCR.Level = "word"
	cfg.OCR.MinConfidence = 0
	cfg.Tagger.InputSize = 64
	cfg.Collaborators.Retries = 1
	cfg.Collaborators.RetryDelay = 0
	cfg.Collaborators.Timeout = 0
	return cfg
}

func newTestProject(t *testing.T, cfg config.Config, src *memSource, collab Collaborators) *Project {
	t.Helper()
	p, err := NewProject(cfg, src, "dungeon", collab, logging.Discard())
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	return p
}

func TestProjectRun(t *testing.T) {
	cfg := testConfig()
	cfg.Tagger.MinPixels = 0
	classifier := &fakeClassifier{}
	collab := Collaborators{
		OCR:        &fakeOCR{},
		Classifier: classifier,
		Keywords:   keywords.NewExtractor(staticRanker{}, 1, 0.3, 5),
	}
	src := &memSource{pages: []image.Image{cyoaPage(), cyoaPage()}}

	var progress atomic.Int64
	p := newTestProject(t, cfg, src, collab)
	p.Progress = func(done, total int, _ string) {
		progress.Add(1)
		if total != 2 || done < 1 || done > 2 {
			t.Errorf("unexpected progress %d/%d", done, total)
		}
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if progress.Load() != 2 {
		t.Errorf("expected 2 progress calls, got %d", progress.Load())
	}

	s := result.Summary
	if s.Pages != 2 || s.Failures != 0 || s.Pixels != 2*200*300 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if result.RunID == "" || result.Name != "dungeon" {
		t.Errorf("missing identity: %q %q", result.RunID, result.Name)
	}

	for i, page := range result.Pages {
		if page.Index != i {
			t.Errorf("pages out of order: %d at %d", page.Index, i)
		}
		if len(page.Sections) < 2 {
			t.Errorf("page %d: expected the title and the art in separate sections, got %v", i, page.Sections)
		}
		if len(page.Chunks) == 0 || !strings.Contains(page.Text, "Choose") {
			t.Errorf("page %d: missing chunk text %q", i, page.Text)
		}
		if len(page.Illustrations) == 0 {
			t.Fatalf("page %d: no illustration found", i)
		}
		ill := page.Illustrations[0]
		if ill.Box.YMin < 100 || len(ill.Tags) == 0 || ill.Tags[0].Tag != "sword" {
			t.Errorf("page %d: unexpected illustration %+v", i, ill)
		}
	}

	for _, size := range classifier.sizes {
		if size != image.Rect(0, 0, 64, 64) {
			t.Errorf("classifier got %v, want 64x64 letterbox", size)
		}
	}

	tags := map[string]float64{}
	for _, ts := range s.Tags {
		tags[ts.Tag] = ts.Score
	}
	if !near(tags["sword"], 0.9) || tags["noise"] != 0 {
		t.Errorf("unexpected tag averages %v", s.Tags)
	}
	special := map[string]float64{}
	for _, ts := range s.Special {
		special[ts.Tag] = ts.Score
	}
	if !near(special["dd_girl"], 0.8) || special["dd_boy"] != 0 {
		t.Errorf("unexpected special tags %v", s.Special)
	}
	if len(s.Keywords) != 1 || s.Keywords[0].Word != "choose" {
		t.Errorf("unexpected keywords %v", s.Keywords)
	}
	if s.Coverage <= 0 || s.Coverage >= 1 {
		t.Errorf("coverage out of range: %v", s.Coverage)
	}
}

func TestProjectRunSmallCYOAZeroesSpecialTags(t *testing.T) {
	cfg := testConfig()
	src := &memSource{pages: []image.Image{cyoaPage()}}
	p := newTestProject(t, cfg, src, Collaborators{OCR: &fakeOCR{}, Classifier: &fakeClassifier{}})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ts := range result.Summary.Special {
		if ts.Score != 0 {
			t.Errorf("%s should be zero below min pixels, got %v", ts.Tag, ts.Score)
		}
	}
}

func TestProjectRunIsolatesFailures(t *testing.T) {
	cfg := testConfig()
	failing := &fakeOCR{err: errors.New("tesseract crashed")}
	src := &memSource{
		pages: []image.Image{cyoaPage(), cyoaPage()},
		fail:  map[int]bool{1: true},
	}
	p := newTestProject(t, cfg, src, Collaborators{OCR: failing, Classifier: &fakeClassifier{}})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should survive collaborator failures: %v", err)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("expected both pages in the result, got %d", len(result.Pages))
	}

	rendered, broken := result.Pages[0], result.Pages[1]
	if rendered.Text != "" || len(rendered.Errors) == 0 {
		t.Errorf("page 1 should carry OCR errors: %+v", rendered.Errors)
	}
	if len(rendered.Illustrations) == 0 {
		t.Error("illustrations should still be found without text")
	}
	if len(broken.Errors) != 1 || !strings.Contains(broken.Errors[0], "SOURCE_FAILED") {
		t.Errorf("page 2 should carry the render error: %v", broken.Errors)
	}
	if result.Summary.Failures < 2 {
		t.Errorf("expected failures counted, got %d", result.Summary.Failures)
	}
	// One retry per call.
	if failing.calls.Load()%2 != 0 {
		t.Errorf("expected every call retried once, got %d calls", failing.calls.Load())
	}
}

func TestProjectRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &memSource{pages: []image.Image{cyoaPage()}}
	p := newTestProject(t, testConfig(), src, Collaborators{OCR: &fakeOCR{}})
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProjectRunEmptySource(t *testing.T) {
	p := newTestProject(t, testConfig(), &memSource{}, Collaborators{})
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestNewProjectRejectsUnknownDetector(t *testing.T) {
	cfg := testConfig()
	cfg.Illustrations.Detector = "neural"
	if _, err := NewProject(cfg, &memSource{}, "x", Collaborators{}, logging.Discard()); err == nil {
		t.Error("expected error for unknown detector")
	}
}
