package cmd

import (
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// batchBar draws a counting progress bar for a batch of total items.
type batchBar struct {
	p    *mpb.Progress
	bar  *mpb.Bar
	last time.Time
}

func newBatchBar(name string, total int) *batchBar {
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &batchBar{p: p, bar: bar, last: time.Now()}
}

// step is a labeling/preprocess Step callback.
func (b *batchBar) step(done, total int) {
	now := time.Now()
	b.bar.EwmaSetCurrent(int64(done), now.Sub(b.last))
	b.last = now
}

// finish completes the bar even when the batch stopped early.
func (b *batchBar) finish() {
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

func newBytesBar(name string, total int64) (*mpb.Progress, *mpb.Bar) {
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	return p, bar
}
