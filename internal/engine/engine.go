// Package engine runs the segmentation pipeline over every page of a CYOA
// and aggregates the pages into one result.
package engine

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cyoaseg/internal/config"
	cerrors "github.com/ivlev/cyoaseg/internal/errors"
	"github.com/ivlev/cyoaseg/internal/report"
	"github.com/ivlev/cyoaseg/internal/source"
	"github.com/ivlev/cyoaseg/internal/system"
	"github.com/ivlev/cyoaseg/internal/tagger"
)

// Project processes one CYOA: all pages of a source.
type Project struct {
	Config   config.Config
	Source   source.Source
	Pipeline *Pipeline
	Collab   Collaborators
	Pool     *Pool
	Name     string
	// Progress, when set, is called after each page.
	Progress func(done, total int, page string)

	log logrus.FieldLogger
}

func NewProject(cfg config.Config, src source.Source, name string, collab Collaborators, log logrus.FieldLogger) (*Project, error) {
	pool := NewPool(cfg.Collaborators.PoolSize, cfg.Collaborators.Retries, cfg.Collaborators.RetryDelay, cfg.Collaborators.Timeout)
	pipeline, err := NewPipeline(cfg, collab, pool, log)
	if err != nil {
		return nil, err
	}
	return &Project{
		Config:   cfg,
		Source:   src,
		Pipeline: pipeline,
		Collab:   collab,
		Pool:     pool,
		Name:     name,
		log:      log,
	}, nil
}

type RenderResult struct {
	Index int
	Image image.Image
}

// Run renders pages and analyses them in two pools connected by a channel.
// A page that fails to render or whose collaborators fail is kept in the
// result with its errors; only cancellation stops the run.
func (p *Project) Run(ctx context.Context) (*report.Result, error) {
	startTime := time.Now()

	pageCount := p.Source.PageCount()
	if pageCount == 0 {
		return nil, fmt.Errorf("source has no pages")
	}

	workers := p.workers(pageCount)
	log := p.log.WithFields(logrus.Fields{"cyoa": p.Name, "pages": pageCount, "workers": workers})
	log.Info("run started")

	pages := make([]*PageResult, pageCount)
	renderResults := make(chan *RenderResult, workers)

	g, gctx := errgroup.WithContext(ctx)

	// 1. Render pool
	var render errgroup.Group
	render.SetLimit(workers)
	g.Go(func() error {
		defer close(renderResults)
		for i := 0; i < pageCount; i++ {
			if gctx.Err() != nil {
				break
			}
			render.Go(func() error {
				img, err := p.Source.RenderPage(i, p.Config.Source.DPI)
				if err != nil {
					perr := cerrors.NewSourceFailedError(p.Source.PageName(i), err)
					log.WithError(perr).Warn("skipping page that failed to render")
					pages[i] = failedPage(i, p.Source.PageName(i), perr)
					return nil
				}
				select {
				case renderResults <- &RenderResult{Index: i, Image: img}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		render.Wait()
		return gctx.Err()
	})

	// 2. Analysis pool
	var mu sync.Mutex
	done := 0
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for res := range renderResults {
				name := p.Source.PageName(res.Index)
				pr, err := p.Pipeline.Process(gctx, res.Index, name, res.Image)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.WithError(err).WithField("page", name).Warn("page analysis failed")
					pr = failedPage(res.Index, name, err)
				}
				pages[res.Index] = pr

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				if p.Progress != nil {
					p.Progress(n, pageCount, name)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := p.aggregate(ctx, pages)
	log.WithFields(logrus.Fields{
		"elapsed":  time.Since(startTime).Round(time.Millisecond).String(),
		"failures": result.Summary.Failures,
	}).Info("run finished")
	return result, nil
}

func (p *Project) workers(pageCount int) int {
	w, h, err := p.Source.GetPageDimensions(0)
	var perPage uint64
	if err == nil {
		nw, nh := source.NormalizedSize(int(w), int(h), p.Config.Source.MaxWidth, p.Config.Source.MaxWideWidth)
		perPage = system.PageBytes(nw, nh)
	}
	n := system.Probe().Workers(p.Config.Workers, perPage)
	if n > pageCount {
		n = pageCount
	}
	return n
}

// aggregate builds the CYOA summary: pixel totals, tag averages, special
// tags and keywords.
func (p *Project) aggregate(ctx context.Context, pages []*PageResult) *report.Result {
	result := &report.Result{
		Version:   report.Version,
		RunID:     uuid.New().String(),
		Name:      p.Name,
		Input:     p.Config.InputPath,
		CreatedAt: time.Now(),
	}

	acc := tagger.NewAccumulator()
	for _, pr := range pages {
		if pr == nil {
			continue
		}
		result.Pages = append(result.Pages, pr.Page)
		result.Summary.Pages++
		result.Summary.Pixels += pr.Page.Pixels
		result.Summary.Failures += pr.Failures
		acc.Merge(pr.Tags)
	}

	s := &result.Summary
	s.Coverage = report.Coverage(result.Pages)
	s.Threshold = p.Config.Tagger.Threshold
	s.Tags = acc.Averages()
	s.Special = acc.Special(p.Pipeline.groups, s.Pixels, p.Config.Tagger.MinPixels)

	if p.Collab.Keywords != nil {
		kws, err := p.Pool.extract(ctx, p.Collab.Keywords, result.Text())
		if err != nil {
			s.Failures++
			p.log.WithError(cerrors.NewKeywordsFailedError(p.Name, err)).Warn("skipping keywords")
		} else {
			s.Keywords = kws
		}
	}
	return result
}

func failedPage(index int, name string, err error) *PageResult {
	return &PageResult{
		Page:     report.Page{Index: index, Name: name, Errors: []string{err.Error()}},
		Tags:     tagger.NewAccumulator(),
		Failures: 1,
	}
}

func sortByScore(tags []tagger.TagScore) {
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Score > tags[j].Score })
}
