package alert

import "context"

// Delivery is the completion handle of a detached webhook post. Callers
// are never required to wait on it.
type Delivery struct {
	done chan struct{}
	err  error
}

func newDelivery() *Delivery {
	return &Delivery{done: make(chan struct{})}
}

// completed returns a handle for an alert that needed no network I/O.
func completed() *Delivery {
	d := newDelivery()
	close(d.done)
	return d
}

func (d *Delivery) finish(err error) {
	d.err = err
	close(d.done)
}

func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the delivery finishes or ctx is done. It returns the
// delivery error, if any.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
