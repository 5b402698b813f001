package mcn

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// freqWindowLen is the frequency window length in seconds: the rate shown
// for a topic is its publish count over the last freqWindowLen one-second
// buckets, averaged.
const freqWindowLen = 5

var (
	estimatorOnce sync.Once
	shutdownOnce  sync.Once
	estimatorStop chan struct{}
	estimatorDone chan struct{}
)

// Init starts the frequency estimator: a once-per-second tick that converts
// each advertised hub's publish counts into a windowed rate. Call once at
// startup; further calls are no-ops.
func Init() {
	estimatorOnce.Do(func() {
		estimatorStop = make(chan struct{})
		estimatorDone = make(chan struct{})
		go estimatorLoop()
		log.Debug().Msg("mcn frequency estimator started")
	})
}

// Shutdown stops the frequency estimator and waits for its tick goroutine to
// exit. Safe to call without Init and safe to call twice.
func Shutdown() {
	if estimatorStop == nil {
		return
	}
	shutdownOnce.Do(func() {
		close(estimatorStop)
		<-estimatorDone
		log.Debug().Msg("mcn frequency estimator stopped")
	})
}

func estimatorLoop() {
	defer close(estimatorDone)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			estimateOnce()
		case <-estimatorStop:
			return
		}
	}
}

// estimateOnce runs one estimator tick over the whole registry: sum the
// window into a rate, then advance the window and zero the next bucket.
func estimateOnce() {
	for c := List(); ; {
		h := c.Next()
		if h == nil {
			return
		}
		critical.Lock()
		var cnt uint32
		for _, bucket := range h.freqWindow {
			cnt += bucket
		}
		h.freq = float32(cnt) / freqWindowLen
		h.windowIndex = (h.windowIndex + 1) % freqWindowLen
		h.freqWindow[h.windowIndex] = 0
		critical.Unlock()
	}
}

// Frequency returns the most recently estimated publish rate in Hz. The
// estimate is advisory and lags up to one estimator tick.
func (h *Hub) Frequency() float32 {
	critical.Lock()
	defer critical.Unlock()
	return h.freq
}
