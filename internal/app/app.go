// Package app contains the top-level orchestration for the sender and
// receiver roles: it wires configuration, impairment and file I/O to the
// GBN engine.
package app

import (
	"context"
	"fmt"
	"net"

	"github.com/1ureka/gbn/internal/channel"
	"github.com/1ureka/gbn/internal/config"
	"github.com/1ureka/gbn/internal/gbn"
	"github.com/1ureka/gbn/internal/impair"
	"github.com/1ureka/gbn/internal/util"
)

// EngineOptions derives engine options from cfg.
func EngineOptions(cfg *config.Config) gbn.Options {
	return gbn.Options{
		Timeout:     cfg.Timeout,
		WindowSize:  cfg.WindowSize,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// NewShim builds the outbound impairment shim from cfg. With both
// probabilities zero every datagram passes untouched.
func NewShim(cfg *config.Config) *impair.Shim {
	if cfg.LossProbability == 0 && cfg.CorruptionProbability == 0 {
		return impair.NewShim(impair.Passthrough)
	}
	util.LogWarning("impairment enabled: loss=%.2f corruption=%.2f seed=%d",
		cfg.LossProbability, cfg.CorruptionProbability, cfg.Seed)
	return impair.NewShim(impair.NewRandom(cfg.LossProbability, cfg.CorruptionProbability, cfg.Seed))
}

// RunSender sends cfg.File to peer over conn.
//  1. Open the file and split it into chunks
//  2. Handshake, transfer and teardown
//  3. Log the outcome
func RunSender(ctx context.Context, cfg *config.Config, conn channel.Conn, peer net.Addr) error {
	src, err := NewFileSource(cfg.File)
	if err != nil {
		return err
	}
	defer src.Close()

	util.LogInfo("sending %s (%d bytes, %d chunks) to %s", cfg.File, src.Size(), src.Len(), peer)

	if err := gbn.Dial(ctx, conn, peer, NewShim(cfg), EngineOptions(cfg), src); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	util.LogSuccess("sent %s: %s", cfg.File, util.Summary())
	return nil
}

// RunReceiver accepts one connection on conn and writes its data to cfg.File.
func RunReceiver(ctx context.Context, cfg *config.Config, conn channel.Conn) error {
	sink, err := NewFileSink(cfg.File)
	if err != nil {
		return err
	}

	util.LogInfo("waiting for sender on %s", conn.LocalAddr())

	peer, err := gbn.Serve(ctx, conn, NewShim(cfg), EngineOptions(cfg), sink)
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("transfer from %v failed: %w", peer, err)
	}

	util.LogSuccess("received %s (%d bytes) from %s: %s", cfg.File, sink.Written(), peer, util.Summary())
	return nil
}
