package gbn

// Sequence numbers are compared with 32-bit serial arithmetic so a session
// may start near the top of the space and wrap.

func seqLess(a, b uint32) bool { return int32(a-b) < 0 }

// seqInWindow reports lo <= v < hi.
func seqInWindow(v, lo, hi uint32) bool { return v-lo < hi-lo }
