package engine

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/cyoaseg/internal/analyzer"
	"github.com/ivlev/cyoaseg/internal/config"
	cerrors "github.com/ivlev/cyoaseg/internal/errors"
	"github.com/ivlev/cyoaseg/internal/geometry"
	"github.com/ivlev/cyoaseg/internal/ocr"
	"github.com/ivlev/cyoaseg/internal/report"
	"github.com/ivlev/cyoaseg/internal/source"
	"github.com/ivlev/cyoaseg/internal/tagger"
)

// Layout is the collaborator-free part of a page: sections, fine chunks and
// the exclusion zones that shaped them.
type Layout struct {
	Page       *analyzer.Chunk
	Sections   []*analyzer.Chunk
	Fine       []*analyzer.Chunk
	Exclusions *geometry.Index
}

// PageResult is one processed page and the tag scores it contributed.
type PageResult struct {
	Page     report.Page
	Tags     *tagger.Accumulator
	Failures int
}

// Pipeline runs the per-page stages. It holds no per-page state and is safe
// for concurrent use when its collaborators are.
type Pipeline struct {
	cfg      config.Config
	collab   Collaborators
	detector analyzer.Detector
	pool     *Pool
	groups   []string
	log      logrus.FieldLogger
}

func NewPipeline(cfg config.Config, collab Collaborators, pool *Pool, log logrus.FieldLogger) (*Pipeline, error) {
	detector, err := analyzer.NewDetector(cfg.Illustrations.Detector, cfg.Illustrations.Params())
	if err != nil {
		return nil, err
	}
	if collab.OCR == nil {
		collab.OCR = ocr.Nop{}
	}
	if collab.Classifier == nil {
		collab.Classifier = tagger.Nop{}
	}
	return &Pipeline{
		cfg:      cfg,
		collab:   collab,
		detector: detector,
		pool:     pool,
		groups:   tagger.GroupNames(cfg.Tagger.Groups),
		log:      log,
	}, nil
}

// Sections splits a page into coarse horizontal sections. A page without
// separators is one section.
func (p *Pipeline) Sections(page *analyzer.Chunk) []*analyzer.Chunk {
	sections := page.SubChunks(p.cfg.Sections.SplitParams(analyzer.Rows))
	if len(sections) == 0 {
		return []*analyzer.Chunk{page}
	}
	return sections
}

// FineChunks splits each section into rows and each row into columns,
// never cutting through an exclusion box.
func (p *Pipeline) FineChunks(sections []*analyzer.Chunk, exclusions *geometry.Index) []*analyzer.Chunk {
	rowParams := p.cfg.Fine.SplitParams(analyzer.Rows)
	rowParams.Exclusions = exclusions
	colParams := p.cfg.Fine.SplitParams(analyzer.Columns)
	colParams.Exclusions = exclusions

	var fine []*analyzer.Chunk
	for _, section := range sections {
		rows := section.SubChunks(rowParams)
		if len(rows) == 0 {
			rows = []*analyzer.Chunk{section}
		}
		for _, row := range rows {
			cols := row.SubChunks(colParams)
			if len(cols) == 0 {
				cols = []*analyzer.Chunk{row}
			}
			fine = append(fine, cols...)
		}
	}
	return fine
}

// ExclusionZones clusters preliminary words into padded boxes that later
// splits must respect.
func (p *Pipeline) ExclusionZones(words []ocr.Detection, width, height int) *geometry.Index {
	charSize := ocr.CharSize(words)
	pad := int(charSize * p.cfg.OCR.ClusterPad)

	idx := geometry.NewIndex(nil)
	for _, c := range ocr.Clusters(words, pad) {
		idx.Insert(c.Box.Pad(pad, pad, width, height))
	}
	return idx
}

// Layout runs the geometric stages with preliminary words supplied by the
// caller. It is what the pipeline does between the two OCR passes.
func (p *Pipeline) Layout(img image.Image, words []ocr.Detection) Layout {
	page := analyzer.NewChunk(img)
	sections := p.Sections(page)
	exclusions := p.ExclusionZones(words, page.Width, page.Height)
	return Layout{
		Page:       page,
		Sections:   sections,
		Fine:       p.FineChunks(sections, exclusions),
		Exclusions: exclusions,
	}
}

// Illustrations finds illustration regions section by section. Known text
// boxes are cut out of every candidate.
func (p *Pipeline) Illustrations(sections []*analyzer.Chunk, text *geometry.Index) ([]analyzer.Region, error) {
	var regions []analyzer.Region
	for _, section := range sections {
		found, err := p.detector.Detect(section, text)
		if err != nil {
			return nil, err
		}
		regions = append(regions, found...)
	}
	return regions, nil
}

// Process runs all stages on one page. Collaborator failures are logged,
// counted and skipped; only cancellation aborts the page.
func (p *Pipeline) Process(ctx context.Context, index int, name string, img image.Image) (*PageResult, error) {
	log := p.log.WithFields(logrus.Fields{"page": name})
	norm := source.Normalize(img, p.cfg.Source.MaxWidth, p.cfg.Source.MaxWideWidth)
	b := img.Bounds()

	res := &PageResult{
		Page: report.Page{
			Index:  index,
			Name:   name,
			Width:  norm.Bounds().Dx(),
			Height: norm.Bounds().Dy(),
			Pixels: source.NormalizedArea(b.Dx(), b.Dy(), p.cfg.Source.MaxWidth, p.cfg.Source.MaxWideWidth),
		},
		Tags: tagger.NewAccumulator(),
	}
	fail := func(err error) {
		res.Failures++
		res.Page.Errors = append(res.Page.Errors, err.Error())
		entry := log.WithError(err)
		if code, ok := cerrors.CodeOf(err); ok {
			entry = entry.WithField("code", code)
		}
		if cerrors.IsRecoverable(err) {
			entry.Warn("skipping failed collaborator call")
			return
		}
		entry.Error("collaborator call failed")
	}

	page := analyzer.NewChunk(norm)
	sections := p.Sections(page)
	for _, s := range sections {
		res.Page.Sections = append(res.Page.Sections, s.Box())
	}

	// Preliminary OCR per section.
	opts := p.cfg.OCR.Options()
	var words []ocr.Detection
	for i, s := range sections {
		dets, err := p.pool.recognize(ctx, p.collab.OCR, s.Image(), opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fail(cerrors.NewOCRFailedError(name, fmt.Sprintf("section %d", i), err))
			continue
		}
		words = append(words, dets...)
	}
	exclusions := p.ExclusionZones(words, page.Width, page.Height)
	fine := p.FineChunks(sections, exclusions)

	// Final OCR per fine chunk.
	level := p.cfg.OCR.AggregateLevel()
	text := geometry.NewIndex(nil)
	var pageText []string
	for i, c := range fine {
		dets, err := p.pool.recognize(ctx, p.collab.OCR, c.Image(), opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fail(cerrors.NewOCRFailedError(name, c.Box().String(), err))
			res.Page.Chunks = append(res.Page.Chunks, report.Chunk{Box: c.Box()})
			continue
		}
		fillChunk(c, ocr.Aggregate(dets, level, p.cfg.OCR.MinConfidence))
		for _, tb := range c.TextBoxes {
			text.Insert(tb)
		}
		if c.Text != "" {
			pageText = append(pageText, c.Text)
		}
		res.Page.Chunks = append(res.Page.Chunks, report.Chunk{Box: c.Box(), Text: c.Text, Confidence: c.Confidence})
		log.WithFields(logrus.Fields{"chunk": i, "box": c.Box().String()}).Debug("chunk recognised")
	}
	res.Page.Text = strings.Join(pageText, "\n")

	regions, err := p.Illustrations(sections, text)
	if err != nil {
		return nil, fmt.Errorf("detect illustrations on %s: %w", name, err)
	}

	boxes := make([]geometry.BoundingBox, len(regions))
	byBox := make(map[geometry.BoundingBox]analyzer.Region, len(regions))
	for i, r := range regions {
		boxes[i] = r.Box
		byBox[r.Box] = r
	}
	for _, box := range report.SortReadingOrder(boxes, p.cfg.Fine.MinSize) {
		r := byBox[box]
		ill := report.Illustration{Box: r.Box, Kind: r.Kind, Score: r.Score}

		crop := page.Crop(r.Box)
		if crop.Valid() {
			prepared := tagger.Prepare(crop.Image(), p.cfg.Tagger.InputSize)
			raw, err := p.pool.classify(ctx, p.collab.Classifier, prepared)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil, ctx.Err()
			case err != nil:
				fail(cerrors.NewTaggerFailedError(name, r.Box.String(), err))
			case len(raw) > 0:
				scores := tagger.Scores(raw, p.cfg.Tagger.Threshold, p.cfg.Tagger.Groups)
				res.Tags.Add(scores)
				ill.Tags = topTags(scores)
			}
		}
		res.Page.Illustrations = append(res.Page.Illustrations, ill)
	}
	res.Page.Tags = res.Tags.Averages()

	log.WithFields(logrus.Fields{
		"sections":      len(sections),
		"chunks":        len(fine),
		"illustrations": len(res.Page.Illustrations),
		"failures":      res.Failures,
	}).Info("page processed")
	return res, nil
}

// fillChunk stores aggregated detections on c.
func fillChunk(c *analyzer.Chunk, dets []ocr.Detection) {
	c.TextBoxes = c.TextBoxes[:0]
	if len(dets) == 0 {
		return
	}
	sum := 0.0
	for _, d := range dets {
		c.TextBoxes = append(c.TextBoxes, d.Box())
		sum += d.Confidence
	}
	c.Confidence = sum / float64(len(dets))
	c.Text = ocr.Text(dets)
}

// topTags keeps the non-zero scores of one region, highest first.
func topTags(scores map[string]float64) []tagger.TagScore {
	acc := tagger.NewAccumulator()
	nonZero := make(map[string]float64)
	for k, v := range scores {
		if v > 0 {
			nonZero[k] = v
		}
	}
	acc.Add(nonZero)
	out := acc.Averages()
	sortByScore(out)
	return out
}
