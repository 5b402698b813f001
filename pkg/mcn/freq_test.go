package mcn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyEstimate(t *testing.T) {
	resetRegistry()

	hub := Define("freq-basic", 1)
	require.NoError(t, hub.Advertise(nil))
	assert.Equal(t, float32(0), hub.Frequency())

	for i := 0; i < 10; i++ {
		require.NoError(t, hub.Publish([]byte{1}))
	}

	estimateOnce()
	assert.Equal(t, float32(2), hub.Frequency(), "10 publishes over a 5s window")

	// The burst stays inside the window until its bucket is recycled: the
	// window advances once per tick and the wrap-around zeroes the bucket
	// holding the burst on the 5th tick.
	for i := 0; i < 4; i++ {
		estimateOnce()
		assert.Equal(t, float32(2), hub.Frequency(), "tick %d", i+2)
	}
	estimateOnce()
	assert.Equal(t, float32(0), hub.Frequency(), "burst aged out of the window")
}

func TestFrequencySpreadAcrossBuckets(t *testing.T) {
	resetRegistry()

	hub := Define("freq-spread", 1)
	require.NoError(t, hub.Advertise(nil))

	// One publish per second for five seconds: steady 1 Hz.
	for i := 0; i < freqWindowLen; i++ {
		require.NoError(t, hub.Publish([]byte{1}))
		estimateOnce()
	}
	assert.Equal(t, float32(1), hub.Frequency())
}

func TestFrequencyIgnoresSuspendedPublishes(t *testing.T) {
	resetRegistry()

	hub := Define("freq-suspended", 1)
	require.NoError(t, hub.Advertise(nil))

	hub.Suspend()
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, hub.Publish([]byte{1}), ErrSuspended)
	}
	estimateOnce()
	assert.Equal(t, float32(0), hub.Frequency(), "rejected publishes must not inflate the rate")
}

func TestFrequencySinglePublish(t *testing.T) {
	resetRegistry()

	hub := Define("freq-single", 1)
	require.NoError(t, hub.Advertise(nil))
	require.NoError(t, hub.Publish([]byte{1}))
	estimateOnce()
	assert.Equal(t, float32(0.2), hub.Frequency())
}

func TestInitAndShutdown(t *testing.T) {
	// Init is idempotent and Shutdown must stop the tick goroutine without
	// hanging, in any call order.
	Init()
	Init()
	Shutdown()
	Shutdown()
}

func TestEstimatorCoversWholeRegistry(t *testing.T) {
	resetRegistry()

	a := Define("freq-all-a", 1)
	b := Define("freq-all-b", 1)
	require.NoError(t, a.Advertise(nil))
	require.NoError(t, b.Advertise(nil))

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish([]byte{1}))
	}
	require.NoError(t, b.Publish([]byte{1}))

	estimateOnce()
	assert.Equal(t, float32(1), a.Frequency())
	assert.Equal(t, float32(0.2), b.Frequency())
}
