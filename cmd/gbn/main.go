// gbn: CLI entry point.
//
// This tool transfers a file reliably over an unreliable datagram channel
// using Go-Back-N: plain UDP, or a WebRTC DataChannel set up through a
// WebSocket signaling server for peers behind NAT. Loss and corruption can
// be injected on the sending path to watch the protocol recover.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-role, -transport, -file, -peer, -wsUrl, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/gbn/internal/app"
	"github.com/1ureka/gbn/internal/channel"
	"github.com/1ureka/gbn/internal/config"
	"github.com/1ureka/gbn/internal/signaling"
	"github.com/1ureka/gbn/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Default()
	role := flag.String("role", "", "Role: send or recv")
	transport := flag.String("transport", string(cfg.Transport), "Datagram channel: udp or webrtc")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Local UDP address to bind")
	flag.StringVar(&cfg.PeerAddr, "peer", "", "Receiver UDP address (send, udp only)")
	flag.StringVar(&cfg.File, "file", "", "File to send (send) or write (recv)")
	flag.IntVar(&cfg.WindowSize, "window", cfg.WindowSize, "Sender window size")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Retransmission timeout")
	flag.IntVar(&cfg.MaxAttempts, "attempts", cfg.MaxAttempts, "Retransmissions without progress before giving up")
	flag.Float64Var(&cfg.LossProbability, "loss", 0, "Probability of dropping an outbound datagram")
	flag.Float64Var(&cfg.CorruptionProbability, "corrupt", 0, "Probability of flipping a bit in an outbound datagram")
	flag.Uint64Var(&cfg.Seed, "seed", 0, "Impairment random seed (0 = random)")
	flag.IntVar(&cfg.WSPort, "wsPort", 0, "WebSocket signaling server port (recv, webrtc only)")
	flag.BoolVar(&cfg.WSListen, "wsListen", false, "Listen on all network interfaces (recv, webrtc only)")
	wsURLFlag := flag.String("wsUrl", "", "WebSocket URL including ?pin= (send, webrtc only)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	traceMode := flag.Bool("trace", false, "Log every packet and state transition")
	flag.Parse()

	cfg.Debug = *debugMode
	switch {
	case *traceMode:
		util.EnableTrace()
	case *debugMode:
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("gbn: v%s", version))
	pterm.Println()

	cfg.Role = config.Role(*role)
	cfg.Transport = config.Transport(*transport)
	if *wsURLFlag != "" {
		wsURL, err := normalizeWSURL(*wsURLFlag)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg.WSURL = wsURL
	}

	if cfg.Role == "" {
		// No -role flag: interactive mode.
		askConfig(cfg)
	}

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Debug {
		util.StartStatsReporter(ctx)
	}

	switch cfg.Transport {
	case config.TransportWebRTC:
		return runWebRTC(ctx, cfg)
	default:
		return runUDP(ctx, cfg)
	}
}

// runUDP runs the selected role over a plain UDP socket.
func runUDP(ctx context.Context, cfg *config.Config) error {
	conn, err := channel.ListenUDP(cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	util.LogDebug("bound UDP socket %s", conn.LocalAddr())

	if cfg.Role == config.RoleReceiver {
		return app.RunReceiver(ctx, cfg, conn)
	}

	peer, err := channel.ResolvePeer(cfg.PeerAddr)
	if err != nil {
		return err
	}
	return app.RunSender(ctx, cfg, conn, peer)
}

// runWebRTC establishes a DataChannel through signaling and runs the
// selected role over it. The receiver hosts the signaling server.
func runWebRTC(ctx context.Context, cfg *config.Config) error {
	if cfg.Role == config.RoleReceiver {
		var wsAddr string
		switch {
		case cfg.WSListen:
			wsAddr = fmt.Sprintf(":%d", cfg.WSPort)
		case cfg.WSPort > 0:
			wsAddr = fmt.Sprintf("127.0.0.1:%d", cfg.WSPort)
		default:
			wsAddr = ":0"
		}

		tr, err := signaling.EstablishAsHost(ctx, wsAddr)
		if err != nil {
			return fmt.Errorf("failed to establish DataChannel: %w", err)
		}
		defer tr.Close()
		return app.RunReceiver(ctx, cfg, tr.Conn())
	}

	tr, err := signaling.EstablishAsClient(ctx, cfg.WSURL)
	if err != nil {
		return fmt.Errorf("failed to establish DataChannel: %w", err)
	}
	defer tr.Close()
	return app.RunSender(ctx, cfg, tr.Conn(), tr.Conn().RemoteAddr())
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates a raw WebSocket URL string and points it at /ws,
// keeping the ?pin= query.
func normalizeWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	if u.Query().Get("pin") == "" {
		return "", fmt.Errorf("WebSocket URL is missing ?pin=: %s", raw)
	}
	return fmt.Sprintf("%s://%s/ws?%s", scheme, u.Host, u.RawQuery), nil
}

// askConfig falls back to interactive prompts when no -role flag is provided.
func askConfig(cfg *config.Config) {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Send    — Transfer a file to a peer", "Receive — Wait for a file from a peer"}).
		WithDefaultText("Select your role").
		Show()
	pterm.Println()

	transport, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"udp", "webrtc"}).
		WithDefaultText("Select the datagram channel").
		Show()
	pterm.Println()
	cfg.Transport = config.Transport(transport)

	if strings.HasPrefix(role, "Send") {
		cfg.Role = config.RoleSender
		cfg.File = askText("File to send")
		if cfg.Transport == config.TransportUDP {
			cfg.PeerAddr = askText("Receiver address (host:port)")
		} else {
			cfg.WSURL = askURL()
		}
	} else {
		cfg.Role = config.RoleReceiver
		cfg.File = askText("File to write")
		if cfg.Transport == config.TransportUDP {
			cfg.ListenAddr = fmt.Sprintf(":%d", askPort("UDP port to listen on (1 ~ 65535)"))
		}
	}

	cfg.Timeout = time.Duration(askInt("Retransmission timeout in ms", int(cfg.Timeout/time.Millisecond))) * time.Millisecond
	cfg.WindowSize = askInt("Window size", cfg.WindowSize)
}

// askText prompts until a non-empty answer is entered.
func askText(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()
		pterm.Println()

		if s := strings.TrimSpace(raw); s != "" {
			return s
		}
		util.LogWarning("a value is required")
	}
}

// askInt prompts for a positive integer, keeping def on empty input.
func askInt(prompt string, def int) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(fmt.Sprintf("%s [%d]", prompt, def)).
			Show()
		pterm.Println()

		raw = strings.TrimSpace(raw)
		if raw == "" {
			return def
		}
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
		util.LogWarning("invalid number: must be a positive integer")
	}
}

// askPort prompts the user for a port number until a valid one is entered.
func askPort(prompt string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && port >= 1 && port <= 65535 {
			pterm.Println()
			return port
		}

		util.LogWarning("invalid port number: must be 1 ~ 65535")
		pterm.Println()
	}
}

// askURL prompts the user for a valid WebSocket URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("WebSocket URL (e.g. wss://***.devtunnels.ms/ws?pin=123456)").
			Show()

		wsURL, err := normalizeWSURL(raw)
		if err == nil {
			pterm.Println()
			return wsURL
		}

		pterm.Println()
		util.LogWarning("invalid input: %v", err)
	}
}
