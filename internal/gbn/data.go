package gbn

// Source is the sender's application data: Len chunks, each at most
// protocol.PayloadSize bytes. Chunk may be called more than once for the same
// index when a window is retransmitted.
type Source interface {
	Len() int
	Chunk(i int) ([]byte, error)
}

// Sink receives in-order chunks on the responder. data is only valid for the
// duration of the call.
type Sink interface {
	OnChunk(seq uint32, data []byte) error
}

// Chunks is an in-memory Source.
type Chunks [][]byte

func (c Chunks) Len() int                    { return len(c) }
func (c Chunks) Chunk(i int) ([]byte, error) { return c[i], nil }

// SinkFunc adapts a function to Sink.
type SinkFunc func(seq uint32, data []byte) error

func (f SinkFunc) OnChunk(seq uint32, data []byte) error { return f(seq, data) }
