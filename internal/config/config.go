// Package config holds the CLI configuration types.
package config

import (
	"fmt"
	"time"
)

// Role represents the user's chosen role (sender or receiver).
type Role string

const (
	RoleSender   Role = "send"
	RoleReceiver Role = "recv"
)

// Transport selects the datagram channel the protocol runs over.
type Transport string

const (
	TransportUDP    Transport = "udp"
	TransportWebRTC Transport = "webrtc"
)

// Protocol defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultWindowSize  = 4
	DefaultMaxAttempts = 10
	MaxWindowSize      = 1024
)

// Config stores all parameters gathered from CLI flags or interactive prompts.
type Config struct {
	Role      Role
	Transport Transport

	ListenAddr string // UDP: local address to bind
	PeerAddr   string // UDP sender: receiver address
	WSPort     int    // WebRTC receiver: signaling server port (0 = random)
	WSListen   bool   // WebRTC receiver: listen on all interfaces
	WSURL      string // WebRTC sender: signaling URL including ?pin=

	File string // sender: file to send; receiver: file to write

	Timeout     time.Duration // single wait-for-packet bound
	WindowSize  int           // sender window, announced in SYN
	MaxAttempts int           // retransmission cycles before giving up

	// Impairment knobs, zero in normal use.
	LossProbability       float64
	CorruptionProbability float64
	Seed                  uint64 // 0 = unseeded

	Debug bool
}

// Default returns a configuration with protocol defaults filled in.
func Default() *Config {
	return &Config{
		Transport:   TransportUDP,
		ListenAddr:  ":0",
		Timeout:     DefaultTimeout,
		WindowSize:  DefaultWindowSize,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleSender, RoleReceiver:
	default:
		return fmt.Errorf("invalid role %q: must be %q or %q", c.Role, RoleSender, RoleReceiver)
	}

	switch c.Transport {
	case TransportUDP:
		if c.Role == RoleSender && c.PeerAddr == "" {
			return fmt.Errorf("missing peer address for udp sender")
		}
	case TransportWebRTC:
		if c.Role == RoleSender && c.WSURL == "" {
			return fmt.Errorf("missing signaling URL for webrtc sender")
		}
	default:
		return fmt.Errorf("invalid transport %q: must be %q or %q", c.Transport, TransportUDP, TransportWebRTC)
	}

	if c.File == "" {
		return fmt.Errorf("missing file path")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.WindowSize < 1 || c.WindowSize > MaxWindowSize {
		return fmt.Errorf("invalid window size %d: must be 1~%d", c.WindowSize, MaxWindowSize)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("invalid max attempts %d: must be at least 1", c.MaxAttempts)
	}
	if c.LossProbability < 0 || c.LossProbability > 1 {
		return fmt.Errorf("invalid loss probability %v: must be within [0, 1]", c.LossProbability)
	}
	if c.CorruptionProbability < 0 || c.CorruptionProbability > 1 {
		return fmt.Errorf("invalid corruption probability %v: must be within [0, 1]", c.CorruptionProbability)
	}
	if c.WSPort < 0 || c.WSPort > 65535 {
		return fmt.Errorf("invalid signaling port %d: must be 0~65535", c.WSPort)
	}
	return nil
}
