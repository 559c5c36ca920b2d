package channel

import (
	"errors"
	"io"
)

// Pipe returns two connected in-memory conns. Like UDP, a write towards a
// closed end is silently lost instead of failing the writer.
func Pipe() (a, b *Buffered) {
	addrA, addrB := Addr("pipe-a"), Addr("pipe-b")

	a = NewBuffered(addrA, addrB, nil)
	b = NewBuffered(addrB, addrA, nil)
	a.send = deliverTo(b)
	b.send = deliverTo(a)
	return a, b
}

func deliverTo(dst *Buffered) func([]byte) error {
	return func(p []byte) error {
		if err := dst.Push(p); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			return err
		}
		return nil
	}
}
