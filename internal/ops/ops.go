// Package ops implements the high-level board operations — flash, dump,
// reset, serial-info, BIOS upgrade, and plain upload — each composing
// the board transport with a specific stub and post-upload wait policy.
package ops

import (
	"context"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"jcp2/internal/board"
	"jcp2/internal/jlog"
)

// Toolset bundles the dependencies every operation needs: the board
// session, a logger, and an optional progress renderer. Progress may be
// nil; callers that don't want bars (tests, `-q`) simply omit it.
type Toolset struct {
	Session  *board.Session
	Log      *jlog.Logger
	Progress *mpb.Progress
}

// newBar creates a byte-counted progress bar for name, or returns nil
// when t.Progress is nil.
func (t *Toolset) newBar(name string, total int64) *mpb.Bar {
	if t.Progress == nil || total <= 0 {
		return nil
	}
	return t.Progress.AddBar(total,
		mpb.PrependDecorators(decor.Name(name)),
		mpb.AppendDecorators(decor.CountersKibiByte("% .1f / % .1f")),
	)
}

func incr(bar *mpb.Bar, n int) {
	if bar != nil {
		bar.IncrBy(n)
	}
}

func done(bar *mpb.Bar) {
	if bar != nil {
		bar.SetCurrent(bar.Current())
		bar.Abort(false)
	}
}

// ensure ctx is always non-nil for callers that forget.
func bg(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
