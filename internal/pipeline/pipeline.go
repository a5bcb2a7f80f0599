// Package pipeline drives sources into sinks: dedup, batching,
// post-processing and concurrent fan-out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"civicdata/us-ingester/internal/metrics"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/postprocess"
	"civicdata/us-ingester/internal/sink"
	"civicdata/us-ingester/internal/source"
	"civicdata/us-ingester/internal/store"
)

type Runner struct {
	Sources   []source.Source
	Sinks     []sink.Sink
	Dedup     *store.Dedup        // nil disables dedup
	Post      *postprocess.Engine // nil disables labelling
	BatchSize int
	Verbose   bool

	now func() time.Time
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// RunOnce runs every source in order and returns their reports.
func (r *Runner) RunOnce(ctx context.Context) []*source.Report {
	start := time.Now()
	reports := make([]*source.Report, 0, len(r.Sources))
	total := 0
	for _, src := range r.Sources {
		if ctx.Err() != nil {
			break
		}
		rep, err := r.RunSource(ctx, src)
		if err != nil {
			log.Printf("%s: %v", src.Name(), err)
		}
		total += rep.TotalEmitted()
		reports = append(reports, rep)
	}
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if r.Verbose {
		log.Printf("cycle finished in %s, total records=%d", time.Since(start).Truncate(time.Millisecond), total)
	}
	return reports
}

// RunSource drains one source. The returned error joins sink failures; item
// errors live in the report.
func (r *Runner) RunSource(ctx context.Context, src source.Source) (*source.Report, error) {
	name := src.Name()
	rep := source.NewReport(name)
	size := r.BatchSize
	if size <= 0 {
		size = 100
	}

	var (
		batch    []model.Envelope
		pending  = map[string]bool{}
		filtered int
		pushErrs []error
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.push(ctx, name, batch); err != nil {
			// keys stay unmarked so the next cycle retries them
			pushErrs = append(pushErrs, err)
		} else {
			for _, e := range batch {
				if r.Dedup != nil {
					r.Dedup.Mark(e.Key())
				}
				rep.Emit(e.Record.Kind())
				metrics.RecordsEmitted.WithLabelValues(name, e.Record.Kind()).Inc()
			}
		}
		batch = batch[:0:0]
	}

	for rec, err := range src.Scrape(ctx) {
		if err != nil {
			rep.Skip(err)
			metrics.ItemsSkipped.WithLabelValues(name, skipReason(err)).Inc()
			log.Printf("%s: skipped %v", name, err)
			if source.IsFatal(err) {
				break
			}
			continue
		}
		env := model.Envelope{Source: name, Record: rec, Observed: r.clock()}
		key := env.Key()
		if pending[key] || (r.Dedup != nil && r.Dedup.Seen(key)) {
			filtered++
			continue
		}
		pending[key] = true
		batch = append(batch, env)
		if len(batch) >= size {
			flush()
		}
	}
	flush()

	if r.Verbose && filtered > 0 {
		log.Printf("%s: dedup filtered %d record(s)", name, filtered)
	}
	if rep.Fatal == nil && len(pushErrs) == 0 {
		metrics.LastSuccess.WithLabelValues(name).SetToCurrentTime()
	}
	log.Print(rep.String())
	return rep, errors.Join(pushErrs...)
}

// push fans one batch out to every sink. A failing sink does not cancel the others.
func (r *Runner) push(ctx context.Context, name string, batch []model.Envelope) error {
	if r.Post != nil {
		batch = r.Post.Apply(batch)
	}
	var g errgroup.Group
	for _, sk := range r.Sinks {
		g.Go(func() error {
			if err := sk.Push(ctx, batch); err != nil {
				metrics.SinkPushes.WithLabelValues(sk.Name(), "error").Inc()
				err = fmt.Errorf("push %s -> %s: %w", name, sk.Name(), err)
				log.Println(err)
				return err
			}
			metrics.SinkPushes.WithLabelValues(sk.Name(), "ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if r.Verbose {
		log.Printf("%s: pushed %d records to %d sink(s)", name, len(batch), len(r.Sinks))
	}
	return nil
}

func skipReason(err error) string {
	var ie *source.ItemError
	if errors.As(err, &ie) {
		return string(ie.Kind)
	}
	return string(source.ErrParse)
}
