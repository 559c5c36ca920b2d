package channel

import (
	"fmt"
	"net"
)

// ListenUDP binds a UDP socket on addr (e.g. ":9000" or "127.0.0.1:0").
func ListenUDP(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return conn, nil
}

// ResolvePeer resolves a UDP peer address. A missing or unspecified host
// (":9000", "0.0.0.0:9000") means this machine and resolves to 127.0.0.1.
func ResolvePeer(addr string) (net.Addr, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peer %s: %w", addr, err)
	}
	if raddr.IP == nil || raddr.IP.IsUnspecified() {
		raddr.IP = net.IPv4(127, 0, 0, 1)
	}
	return raddr, nil
}
