package phy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Runs a clean scrambled idle stream into the descrambler, two bits per
// cycle, until it reports lock.  Returns how many cycles that took.
func driveToLock(t *testing.T, d *Descrambler, s *Scrambler, testMode bool) int {
	t.Helper()

	for cycle := 1; cycle <= 100; cycle++ {
		var _, _, locked = d.Step(s.Step(3, 2), 2, true, testMode)
		if locked {
			return cycle
		}
	}

	t.Fatal("descrambler never locked on a clean idle stream")
	return 0
}

func TestDescramblerIdleCycleHoldsState(t *testing.T) {
	var d = NewDescrambler()

	// A cycle with no valid bits is normal: nothing moves except the
	// output register, which reports all-invalid.
	var _, valid, locked = d.Step(0b10, 0b00, true, false)

	assert.EqualValues(t, 0b00, valid)
	assert.False(t, locked)
	assert.EqualValues(t, 0, d.lfsr)
	assert.EqualValues(t, DESCRAMBLE_IDLE_RESET, d.idles)
	assert.EqualValues(t, 0, d.unlockTimer)
}

func TestDescramblerLockAcquisition(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	var lockedAt = driveToLock(t, d, s, false)

	// 29 idle bit positions at two per cycle cannot complete in fewer
	// than 14 cycles, and the LFSR self-seed adds only a handful more.
	assert.GreaterOrEqual(t, lockedAt, 14, "locked before the idle run could have completed")
	assert.LessOrEqual(t, lockedAt, 25, "lock took far longer than seeding plus the idle run")

	// Continuing idle holds lock and keeps the timer topped up.
	for i := 0; i < 50; i++ {
		var _, valid, locked = d.Step(s.Step(3, 2), 2, true, false)
		require.True(t, locked)
		require.EqualValues(t, 0b10, valid)
	}
}

func TestDescramblerLockAcquisitionSingleBit(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	// Same acquisition at one bit per cycle.  Lane 1 carries the bit.
	var lockedAt = -1
	for cycle := 1; cycle <= 100; cycle++ {
		var _, _, locked = d.Step(s.Step(0b10, 0b01), 0b01, true, false)
		if locked {
			lockedAt = cycle
			break
		}
	}

	require.NotEqual(t, -1, lockedAt, "never locked")
	assert.GreaterOrEqual(t, lockedAt, 29, "locked before 29 idle bits went by")
	assert.LessOrEqual(t, lockedAt, 45)
}

func TestDescramblerSignalLossForcesResync(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	driveToLock(t, d, s, false)

	// One cycle without signal is an unconditional restart, no matter
	// what else is on the inputs that cycle.
	var _, valid, locked = d.Step(s.Step(3, 2), 2, false, false)

	assert.False(t, locked)
	assert.EqualValues(t, 0b00, valid)
	assert.EqualValues(t, 0, d.lfsr)
	assert.EqualValues(t, DESCRAMBLE_IDLE_RESET, d.idles)
	assert.False(t, d.relock)
	assert.EqualValues(t, 0, d.unlockTimer)

	// The stream itself is all the descrambler needs to come back.
	driveToLock(t, d, s, false)
}

// Exercises the full 0xffff-cycle unlock hysteresis: lock survives exactly
// the threshold number of cycles without a qualifying idle run.
func TestDescramblerHysteresis(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	driveToLock(t, d, s, false)

	// First non-idle cycle consumes the pending relock pulse and reseeds
	// the timer.  Scrambling zero data gives a descrambled output of
	// zero, which never looks like idle.
	d.Step(s.Step(0, 2), 2, true, false)
	require.False(t, d.relock)
	require.EqualValues(t, DESCRAMBLE_UNLOCK_CYCLES, d.unlockTimer)

	for i := 0; i < DESCRAMBLE_UNLOCK_CYCLES; i++ {
		var _, _, locked = d.Step(s.Step(0, 2), 2, true, false)
		require.Truef(t, locked, "unlocked early, %d cycles after reseed", i+1)
	}

	var _, _, locked = d.Step(s.Step(0, 2), 2, true, false)
	assert.False(t, locked, "still locked past the hysteresis threshold")
}

func TestDescramblerHysteresisTestMode(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	driveToLock(t, d, s, true)

	d.Step(s.Step(0, 2), 2, true, true)
	require.False(t, d.relock)
	require.EqualValues(t, DESCRAMBLE_UNLOCK_CYCLES_TEST, d.unlockTimer)

	for i := 0; i < DESCRAMBLE_UNLOCK_CYCLES_TEST; i++ {
		var _, _, locked = d.Step(s.Step(0, 2), 2, true, true)
		require.Truef(t, locked, "unlocked early, %d cycles after reseed", i+1)
	}

	var _, _, locked = d.Step(s.Step(0, 2), 2, true, true)
	assert.False(t, locked, "still locked past the test-mode threshold")
}

func TestDescramblerUnlockThresholdConstants(t *testing.T) {
	assert.Equal(t, 0xffff, DESCRAMBLE_UNLOCK_CYCLES)
	assert.Equal(t, 625, DESCRAMBLE_UNLOCK_CYCLES_TEST)
}

func TestDescramblerIdleCounterNoUnderflow(t *testing.T) {
	var d = NewDescrambler()
	var s = NewScrambler()

	driveToLock(t, d, s, false)

	// Endless idle keeps hitting the relock threshold.  The counter must
	// sit at the clamp, never wrap below it.
	for i := 0; i < 200; i++ {
		d.Step(s.Step(3, 2), 2, true, false)
		require.GreaterOrEqual(t, d.idles, uint8(DESCRAMBLE_IDLE_FLOOR))
		require.True(t, d.relock, "relock should repeat every cycle of continuous idle")
	}
	assert.EqualValues(t, DESCRAMBLE_IDLE_FLOOR, d.idles)
}

// Any input sequence replayed from the same initial state produces
// bit-identical outputs and identical final state.
func TestDescramblerDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var steps = rapid.SliceOfN(rapid.SampledFrom([]uint8{0b00, 0b01, 0b10}), 1, 200).Draw(t, "valids")
		var bits = rapid.SliceOfN(rapid.SampledFrom([]uint8{0, 1, 2, 3}), len(steps), len(steps)).Draw(t, "bits")
		var signals = rapid.SliceOfN(rapid.Bool(), len(steps), len(steps)).Draw(t, "signals")
		var testMode = rapid.Bool().Draw(t, "testMode")

		var d1 = NewDescrambler()
		var d2 = NewDescrambler()

		for i := range steps {
			var o1, v1, l1 = d1.Step(bits[i], steps[i], signals[i], testMode)
			var o2, v2, l2 = d2.Step(bits[i], steps[i], signals[i], testMode)

			assert.Equal(t, o1, o2)
			assert.Equal(t, v1, v2)
			assert.Equal(t, l1, l2)
		}

		assert.Equal(t, *d1, *d2)
	})
}

// From any reachable state, one cycle without signal restores the full
// synchronization-search reset state.
func TestDescramblerResetSafety(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var d = NewDescrambler()
		var s = NewScrambler()

		// Random walk to some reachable state, with stretches of clean
		// idle mixed in so lock is plausible when we cut the signal.
		var n = rapid.IntRange(0, 100).Draw(t, "n")
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "idle") {
				d.Step(s.Step(3, 2), 2, true, false)
			} else {
				d.Step(rapid.SampledFrom([]uint8{0, 1, 2, 3}).Draw(t, "bits"),
					rapid.SampledFrom([]uint8{0b00, 0b01, 0b10}).Draw(t, "valid"),
					true, false)
			}
		}

		var _, valid, locked = d.Step(rapid.SampledFrom([]uint8{0, 1, 2, 3}).Draw(t, "lastBits"),
			rapid.SampledFrom([]uint8{0b00, 0b01, 0b10}).Draw(t, "lastValid"),
			false, false)

		assert.EqualValues(t, 0b00, valid)
		assert.False(t, locked)
		assert.EqualValues(t, 0, d.lfsr)
		assert.EqualValues(t, DESCRAMBLE_IDLE_RESET, d.idles)
		assert.False(t, d.relock)
		assert.EqualValues(t, 0, d.unlockTimer)
		assert.EqualValues(t, 0, d.unscrambledValid)
	})
}
