package storage

import "context"

// Upload is the one-shot result of Put.
type Upload struct {
	done chan struct{}
	rec  Record
	err  error
}

func newUpload() *Upload { return &Upload{done: make(chan struct{})} }

func (u *Upload) finish(rec Record, err error) {
	u.rec, u.err = rec, err
	close(u.done)
}

// Done is closed when the upload has finished.
func (u *Upload) Done() <-chan struct{} { return u.done }

// Wait blocks until the upload finishes or ctx is done.
func (u *Upload) Wait(ctx context.Context) (Record, error) {
	select {
	case <-u.done:
		return u.rec, u.err
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}
