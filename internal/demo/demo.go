// Package demo wires example topics onto the bus: a heartbeat counter and a
// system-status sample, each with an echo function for the console, plus one
// subscriber of each consumption mode (publish callback and synchronous
// poll).
package demo

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"umcn/pkg/mcn"
)

const (
	heartbeatSize = 8  // tick counter
	sysstatSize   = 24 // cpu percent, mem used, mem total
)

// Heartbeat carries a monotonically increasing tick counter.
var Heartbeat = mcn.Define("heartbeat", heartbeatSize)

// Sysstat carries a host resource sample: CPU utilization and memory usage.
var Sysstat = mcn.Define("sysstat", sysstatSize)

func encodeHeartbeat(buf []byte, tick uint64) {
	binary.LittleEndian.PutUint64(buf, tick)
}

func encodeSysstat(buf []byte, cpuPercent float64, memUsed, memTotal uint64) {
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(cpuPercent))
	binary.LittleEndian.PutUint64(buf[8:16], memUsed)
	binary.LittleEndian.PutUint64(buf[16:24], memTotal)
}

func heartbeatEcho(w io.Writer, h *mcn.Hub) error {
	buf := make([]byte, heartbeatSize)
	if err := h.Read(buf); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "tick:%d\n", binary.LittleEndian.Uint64(buf))
	return err
}

func sysstatEcho(w io.Writer, h *mcn.Hub) error {
	buf := make([]byte, sysstatSize)
	if err := h.Read(buf); err != nil {
		return err
	}
	cpuPercent := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
	memUsed := binary.LittleEndian.Uint64(buf[8:16])
	memTotal := binary.LittleEndian.Uint64(buf[16:24])
	_, err := fmt.Fprintf(w, "cpu:%.1f%% mem:%d/%dMB\n",
		cpuPercent, memUsed/(1024*1024), memTotal/(1024*1024))
	return err
}

// Setup advertises the demo topics with their echo functions.
func Setup() error {
	if err := Heartbeat.Advertise(heartbeatEcho); err != nil {
		return fmt.Errorf("advertise heartbeat: %w", err)
	}
	if err := Sysstat.Advertise(sysstatEcho); err != nil {
		return fmt.Errorf("advertise sysstat: %w", err)
	}
	return nil
}

// Run starts the demo publisher tasks and two demonstration subscribers. It
// returns after spawning; the publisher goroutines stop when ctx is canceled.
// The sysstat waiter does not watch ctx: it exits after the first sample.
func Run(ctx context.Context, logger zerolog.Logger, heartbeatEvery, sysstatEvery time.Duration) error {
	// Asynchronous mode: the callback fires on the first heartbeat, then the
	// subscriber removes itself from inside its own callback.
	var once *mcn.Node
	once, err := Heartbeat.Subscribe(nil, func(payload []byte) {
		logger.Info().
			Uint64("tick", binary.LittleEndian.Uint64(payload)).
			Msg("first heartbeat received")
		if err := Heartbeat.Unsubscribe(once); err != nil {
			logger.Error().Err(err).Msg("heartbeat unsubscribe failed")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe heartbeat: %w", err)
	}

	// Synchronous mode: block until the first sysstat sample arrives, copy
	// it out, then drop the subscription.
	waiter, err := Sysstat.Subscribe(mcn.NewEvent(), nil)
	if err != nil {
		return fmt.Errorf("subscribe sysstat: %w", err)
	}
	go func() {
		if !waiter.PollSync(-1) {
			return
		}
		buf := make([]byte, sysstatSize)
		if err := Sysstat.Copy(waiter, buf); err != nil {
			logger.Error().Err(err).Msg("sysstat copy failed")
			return
		}
		logger.Info().
			Float64("cpu_percent", math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))).
			Msg("first sysstat sample received")
		if err := Sysstat.Unsubscribe(waiter); err != nil {
			logger.Error().Err(err).Msg("sysstat unsubscribe failed")
		}
	}()

	go publishHeartbeat(ctx, logger, heartbeatEvery)
	go publishSysstat(ctx, logger, sysstatEvery)
	return nil
}

func publishHeartbeat(ctx context.Context, logger zerolog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	buf := make([]byte, heartbeatSize)
	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			encodeHeartbeat(buf, tick)
			if err := Heartbeat.Publish(buf); err != nil {
				logger.Debug().Err(err).Msg("heartbeat publish rejected")
			}
		}
	}
}

func publishSysstat(ctx context.Context, logger zerolog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	buf := make([]byte, sysstatSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percents, err := cpu.Percent(0, false)
			if err != nil || len(percents) == 0 {
				logger.Debug().Err(err).Msg("cpu sample failed")
				continue
			}
			vm, err := mem.VirtualMemory()
			if err != nil {
				logger.Debug().Err(err).Msg("memory sample failed")
				continue
			}
			encodeSysstat(buf, percents[0], vm.Used, vm.Total)
			if err := Sysstat.Publish(buf); err != nil {
				logger.Debug().Err(err).Msg("sysstat publish rejected")
			}
		}
	}
}
