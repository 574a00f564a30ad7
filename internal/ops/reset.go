package ops

import "context"

// Reset issues a board reset and waits for it to reappear.
func (t *Toolset) Reset(ctx context.Context, force bool) error {
	ctx = bg(ctx)
	return t.Session.ResetAndReconnect(ctx, force, nil)
}
