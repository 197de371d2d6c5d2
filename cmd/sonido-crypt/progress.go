package main

import (
	"io"
	"sync/atomic"

	"github.com/RyanBlaney/sonido-crypt/pipeline"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress shows pipeline stages as an mpb bar
type progress struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	stage atomic.Value
}

func newProgress(w io.Writer, name string, stages []pipeline.Stage) *progress {
	pr := &progress{p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))}
	pr.stage.Store("")

	pr.bar = pr.p.AddBar(int64(len(stages)),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return pr.stage.Load().(string)
			}),
		),
	)
	return pr
}

// Observe advances the bar by one completed stage
func (pr *progress) Observe(stage pipeline.Stage) {
	pr.stage.Store(string(stage))
	pr.bar.Increment()
}

// Finish waits for rendering to end. A failed run aborts the bar.
// Safe on a nil progress.
func (pr *progress) Finish(err error) {
	if pr == nil {
		return
	}
	if err != nil {
		pr.bar.Abort(false)
	}
	pr.p.Wait()
}
