package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide protocol counter.
var Stats = &stats{}

type stats struct {
	PacketsSent      atomic.Int64 // datagrams handed to the network (after impairment)
	PacketsDropped   atomic.Int64 // datagrams swallowed by the impairment shim
	PacketsCorrupted atomic.Int64 // datagrams sent with a flipped bit
	Retransmits      atomic.Int64 // DATA/SYN/FIN/... sent again after a timeout
	Timeouts         atomic.Int64 // wait points that expired without a packet
	Discarded        atomic.Int64 // inbound packets ignored (bad checksum, wrong kind, ...)
	BytesSent        atomic.Int64 // application bytes accepted by the peer
	BytesRecv        atomic.Int64 // application bytes delivered to the sink
}

func (s *stats) AddSent()       { s.PacketsSent.Add(1) }
func (s *stats) AddDropped()    { s.PacketsDropped.Add(1) }
func (s *stats) AddCorrupted()  { s.PacketsCorrupted.Add(1) }
func (s *stats) AddRetransmit() { s.Retransmits.Add(1) }
func (s *stats) AddTimeout()    { s.Timeouts.Add(1) }
func (s *stats) AddDiscarded()  { s.Discarded.Add(1) }
func (s *stats) AddBytesSent(n int) {
	s.BytesSent.Add(int64(n))
}
func (s *stats) AddBytesRecv(n int) {
	s.BytesRecv.Add(int64(n))
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs transfer statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0

				pterm.DefaultLogger.Info(formatStats(inS, outS,
					Stats.Retransmits.Load(), Stats.Timeouts.Load(), Stats.Discarded.Load()))

				prevSent = sent
				prevRecv = recv

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Summary returns a one-line rendering of the cumulative counters.
func Summary() string {
	return fmt.Sprintf("sent=%d dropped=%d corrupted=%d retransmits=%d timeouts=%d discarded=%d",
		Stats.PacketsSent.Load(),
		Stats.PacketsDropped.Load(),
		Stats.PacketsCorrupted.Load(),
		Stats.Retransmits.Load(),
		Stats.Timeouts.Load(),
		Stats.Discarded.Load(),
	)
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, retransmits, timeouts, discarded int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Rtx: %d | Timeouts: %d | Discarded: %d",
		formatBytes(inS),
		formatBytes(outS),
		retransmits,
		timeouts,
		discarded,
	)
}
