package gbn

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/1ureka/gbn/internal/channel"
	"github.com/1ureka/gbn/internal/impair"
	"github.com/1ureka/gbn/internal/protocol"
)

// recorder is an impair.Policy that logs every packet offered to the shim and
// applies an optional script. seen counts earlier packets with the same kind
// and sequence, so seen == 0 targets a first transmission.
type recorder struct {
	mu     sync.Mutex
	sent   []protocol.Packet
	script func(pkt *protocol.Packet, seen int) impair.Verdict
}

func (r *recorder) Decide(pkt *protocol.Packet, _ int) impair.Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := 0
	for _, p := range r.sent {
		if p.Kind == pkt.Kind && p.Seq == pkt.Seq {
			seen++
		}
	}
	r.sent = append(r.sent, *pkt)
	if r.script == nil {
		return impair.Verdict{}
	}
	return r.script(pkt, seen)
}

// seqs returns the sequence numbers of every recorded packet of kind.
func (r *recorder) seqs(kind protocol.Kind) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []uint32
	for _, p := range r.sent {
		if p.Kind == kind {
			out = append(out, p.Seq)
		}
	}
	return out
}

func dropFirst(kind protocol.Kind, seq uint32) func(*protocol.Packet, int) impair.Verdict {
	return func(pkt *protocol.Packet, seen int) impair.Verdict {
		return impair.Verdict{Drop: pkt.Kind == kind && pkt.Seq == seq && seen == 0}
	}
}

func fixedISN(n uint32) func() uint32 { return func() uint32 { return n } }

func makeChunks(n int) Chunks {
	chunks := make(Chunks, n)
	for i := range chunks {
		chunks[i] = bytes.Repeat([]byte{byte(i + 1)}, protocol.PayloadSize)
	}
	return chunks
}

type side struct {
	policy impair.Policy
	opts   Options
}

type result struct {
	sendErr error
	recvErr error
	got     [][]byte
}

// transfer runs Dial against Serve over an in-memory pipe.
func transfer(t *testing.T, chunks Chunks, snd, rcv side) result {
	t.Helper()

	a, b := channel.Pipe()
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var res result
	done := make(chan struct{})
	go func() {
		defer close(done)
		sink := SinkFunc(func(_ uint32, data []byte) error {
			res.got = append(res.got, bytes.Clone(data))
			return nil
		})
		_, res.recvErr = Serve(ctx, b, impair.NewShim(rcv.policy), rcv.opts, sink)
	}()

	res.sendErr = Dial(ctx, a, b.LocalAddr(), impair.NewShim(snd.policy), snd.opts, chunks)
	<-done
	return res
}

func checkDelivered(t *testing.T, got [][]byte, want Chunks) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("delivered %d chunks, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("chunk %d corrupted or out of order", i)
		}
	}
}

// rawPeer drives one end of a pipe packet by packet.
type rawPeer struct {
	t    *testing.T
	conn *channel.Buffered
}

func (p rawPeer) send(kind protocol.Kind, seq uint32, payload []byte) {
	p.t.Helper()
	pkt := protocol.New(kind, seq, 4, payload)
	if _, err := p.conn.WriteTo(protocol.Encode(&pkt), nil); err != nil {
		p.t.Fatalf("raw send %s: %v", &pkt, err)
	}
}

func (p rawPeer) sendCorrupted(kind protocol.Kind, seq uint32) {
	p.t.Helper()
	pkt := protocol.New(kind, seq, 0, nil)
	wire := protocol.Encode(&pkt)
	wire[protocol.HeaderSize+3] ^= 0x01
	if _, err := p.conn.WriteTo(wire, nil); err != nil {
		p.t.Fatalf("raw send: %v", err)
	}
}

func (p rawPeer) expect(kind protocol.Kind, seq uint32) {
	p.t.Helper()
	if err := p.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		p.t.Fatalf("SetReadDeadline: %v", err)
	}
	buf := make([]byte, protocol.Size)
	n, _, err := p.conn.ReadFrom(buf)
	if err != nil {
		p.t.Fatalf("waiting for %s %d: %v", kind, seq, err)
	}
	pkt, err := protocol.Decode(buf[:n])
	if err != nil {
		p.t.Fatalf("Decode: %v", err)
	}
	if !pkt.Valid() {
		p.t.Fatalf("received invalid packet %s", &pkt)
	}
	if pkt.Kind != kind || pkt.Seq != seq {
		p.t.Fatalf("got %s seq=%d, want %s seq=%d", pkt.Kind, pkt.Seq, kind, seq)
	}
}
