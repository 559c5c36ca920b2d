package util

import (
	"net"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{100 * 1024, " 0.1 MiB"},
	}

	for _, tc := range testCases {
		got := formatBytes(tc.in)
		if got != tc.want {
			t.Errorf("formatBytes(%v): got %q, want %q", tc.in, got, tc.want)
		}
		if len(got) != 8 {
			t.Errorf("formatBytes(%v): width %d, want 8", tc.in, len(got))
		}
	}
}

func TestFormatStats(t *testing.T) {
	got := formatStats(0, 1536, 3, 2, 1)
	for _, part := range []string{"Out:  1.5 KiB/s", "Rtx: 3", "Timeouts: 2", "Discarded: 1"} {
		if !strings.Contains(got, part) {
			t.Errorf("formatStats output %q does not contain %q", got, part)
		}
	}
}

func TestPeerKey(t *testing.T) {
	udp := func(s string) net.Addr {
		addr, err := net.ResolveUDPAddr("udp", s)
		if err != nil {
			t.Fatalf("ResolveUDPAddr(%s): %v", s, err)
		}
		return addr
	}
	local := udp("127.0.0.1:9000")

	testCases := []struct {
		name string
		addr net.Addr
		same bool
	}{
		{"identical", udp("127.0.0.1:9000"), true},
		{"no host", udp(":9000"), true},
		{"unspecified v4", udp("0.0.0.0:9000"), true},
		{"v6 loopback", udp("[::1]:9000"), true},
		{"v4-mapped", udp("[::ffff:127.0.0.1]:9000"), true},
		{"nil IP", &net.UDPAddr{Port: 9000}, true},
		{"other port", udp("127.0.0.1:9001"), false},
		{"other host", udp("10.0.0.1:9000"), false},
		{"other network", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SamePeer(local, tc.addr); got != tc.same {
				t.Errorf("SamePeer(%s, %s) = %v, want %v", local, tc.addr, got, tc.same)
			}
		})
	}

	if PeerKey(local) != PeerKey(local) {
		t.Error("PeerKey is not deterministic within a process")
	}
	if PeerKey(nil) != 0 {
		t.Error("nil address should have key 0")
	}
}

func TestLoggerFactoryScopes(t *testing.T) {
	l := LoggerFactory.NewLogger("gbn")
	sl, ok := l.(*scopedLogger)
	if !ok {
		t.Fatalf("unexpected logger type %T", l)
	}
	if sl.prefix != "[gbn] " {
		t.Errorf("prefix: got %q, want %q", sl.prefix, "[gbn] ")
	}
}
