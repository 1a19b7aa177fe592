package phy

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Self-synchronizing descrambler and lock detection for the
 *		100BASE-TX receive path.
 *
 *		The line carries data whitened by a free-running side-stream
 *		scrambler (x^11 + x^9 + 1).  While unlocked we seed our own
 *		LFSR from the received stream itself; once enough consecutive
 *		idle symbols descramble correctly we declare lock and let the
 *		LFSR free-run on its own feedback.  A countdown timer provides
 *		hysteresis so a brief interruption of the idle pattern does
 *		not immediately drop lock.
 *
 * Reference:	IEEE 802.3, descrambler behavior per ANSI X3.263 (TP-PMD)
 *		clause 7.2.3.
 *
 *--------------------------------------------------------------------------------*/

// The descrambler consumes one or two bits per cycle.  Lane 1 carries the
// earlier bit of a two-bit pair, and the only bit of a one-bit transfer.

const DESCRAMBLE_LFSR_MASK = 0x7ff // 11 bit state

// Number of consecutive idle (all ones) bit positions we still need to see
// before pulsing relock.  Reset whenever the descrambled output stops looking
// like idle.  Note that only 28 bits might be required in certain situations
// because of how two-bit transfers are accounted, but that slack is accepted;
// the counter and its floor are kept as-is.
const DESCRAMBLE_IDLE_RESET = 29

// After the relock threshold is met the counter is clamped here, never to 0,
// so the next decrement-by-two cannot underflow.
const DESCRAMBLE_IDLE_FLOOR = 2

// Cycles we stay locked without observing another qualifying idle run.
// The test threshold trades two orders of magnitude of hysteresis for
// test suites that do not want to wait out 65535 cycles per unlock.
const (
	DESCRAMBLE_UNLOCK_CYCLES      = 0xffff
	DESCRAMBLE_UNLOCK_CYCLES_TEST = 625
)

/*
 * All state is committed once per cycle at the end of Step.  Candidate values
 * are pure functions of the current state and the current inputs, so a given
 * input sequence always produces the same output sequence.
 */

type Descrambler struct {
	lfsr        uint16 // 11 bits
	idles       uint8  // 5 bit down counter
	relock      bool   // one cycle pulse, consumed the following cycle
	unlockTimer uint16
	locked      bool

	unscrambled      uint8 // registered outputs, one cycle behind the input
	unscrambledValid uint8
}

func NewDescrambler() *Descrambler {
	var d = new(Descrambler)
	d.Reset()
	return d
}

/*--------------------------------------------------------------------------------
 *
 * Function:	Reset
 *
 * Purpose:	Force the synchronization-search state: LFSR cleared, idle
 *		counter rearmed, lock and its timer dropped.  This is also
 *		what loss of signal_status does on every cycle it is absent.
 *
 *--------------------------------------------------------------------------------*/

func (d *Descrambler) Reset() {
	d.lfsr = 0
	d.idles = DESCRAMBLE_IDLE_RESET
	d.relock = false
	d.unlockTimer = 0
	d.locked = false
	d.unscrambled = 0
	d.unscrambledValid = 0
}

// Locked reports whether the descrambler currently considers itself
// synchronized.  Callers must not trust Unscrambled output while false.
func (d *Descrambler) Locked() bool {
	return d.locked
}

/*--------------------------------------------------------------------------------
 *
 * Function:	Step
 *
 * Purpose:	Advance the descrambler by one cycle.
 *
 * Inputs:	scrambled	- Two received line bits.  Lane 1 is the earlier
 *				  bit; for one-bit transfers it is the only bit.
 *
 *		scrambledValid	- Validity mask.  Bit 0 set: exactly one bit
 *				  consumed this cycle.  Bit 1 set: exactly two.
 *				  Neither: idle cycle, no data.  The two are
 *				  mutually exclusive.
 *
 *		signalStatus	- External signal-presence indication.  While
 *				  false, every cycle forces the reset state.
 *
 *		testMode	- Selects the short unlock-hysteresis threshold.
 *
 * Outputs:	unscrambled	- Descrambled bits, registered one cycle after
 *				  the corresponding input.
 *
 *		unscrambledValid - Validity mask for unscrambled, the input
 *				  mask delayed by one cycle.  Forced to zero
 *				  while signalStatus is false.
 *
 *		locked		- Synchronization status after this cycle.
 *
 * Description:	Never fails; an all-invalid input cycle is normal and unlock
 *		is an ordinary protocol state, not an error.
 *
 *--------------------------------------------------------------------------------*/

func (d *Descrambler) Step(scrambled uint8, scrambledValid uint8, signalStatus bool, testMode bool) (uint8, uint8, bool) {
	scrambled &= 3
	scrambledValid &= 3

	// Descrambling taps.  tap1 is the keystream bit one step ahead of the
	// LFSR history, tap0 two steps ahead, so tap1 lines up with the earlier
	// lane of this cycle's pair.
	var tap1 = uint8((d.lfsr >> 8 ^ d.lfsr >> 10) & 1)
	var tap0 = uint8((d.lfsr >> 7 ^ d.lfsr >> 9) & 1)
	var tap = tap1<<1 | tap0

	var unscrambledNext = (scrambled ^ tap) & 3

	// Advance the LFSR by however many bits arrived.  While unlocked the
	// inverted raw input is folded in: idle data is all ones, so the line
	// carries the complemented keystream and inverting recovers it.  Once
	// locked the feedback is self-referential; the inversion would cancel
	// anyway since each tap XORs two state bits.
	var lfsrNext = d.lfsr
	switch {
	case scrambledValid&2 != 0:
		var in uint16
		if d.locked {
			in = uint16(tap)
		} else {
			in = uint16(^scrambled) & 3
		}
		lfsrNext = (d.lfsr<<2 | in) & DESCRAMBLE_LFSR_MASK
	case scrambledValid&1 != 0:
		var in uint16
		if d.locked {
			in = uint16(tap1)
		} else {
			in = uint16(^scrambled>>1) & 1
		}
		lfsrNext = (d.lfsr<<1 | in) & DESCRAMBLE_LFSR_MASK
	}

	// Idle run length counting, on the descrambled candidate rather than
	// the raw line bits.  Anything that is not a continuing run of ones
	// rearms the counter.
	var idlesNext = d.idles
	switch {
	case scrambledValid&2 != 0:
		switch {
		case unscrambledNext == 3:
			idlesNext = (d.idles - 2) & 0x1f
		case unscrambledNext&1 != 0:
			idlesNext = (d.idles - 1) & 0x1f
		default:
			idlesNext = DESCRAMBLE_IDLE_RESET
		}
	case scrambledValid&1 != 0:
		if unscrambledNext&2 != 0 {
			idlesNext = (d.idles - 1) & 0x1f
		} else {
			idlesNext = DESCRAMBLE_IDLE_RESET
		}
	}

	// A long enough run drains the counter to 0 or 1 (top four bits clear).
	// Pulse relock and clamp at the floor.  During continuous idle this
	// repeats every cycle, which keeps the unlock timer topped up.
	var relockNext = false
	if idlesNext&0x1e == 0 {
		relockNext = true
		idlesNext = DESCRAMBLE_IDLE_FLOOR
	}

	// Unlock hysteresis, driven by the relock pulse registered last cycle.
	// Lock is the default; only an exhausted timer with no relock in the
	// interim drops it.
	var lockedNext = true
	var unlockTimerNext = d.unlockTimer
	switch {
	case d.relock:
		if testMode {
			unlockTimerNext = DESCRAMBLE_UNLOCK_CYCLES_TEST
		} else {
			unlockTimerNext = DESCRAMBLE_UNLOCK_CYCLES
		}
	case d.unlockTimer != 0:
		unlockTimerNext = d.unlockTimer - 1
	default:
		lockedNext = false
	}

	// Commit.  No signal means an unconditional restart of synchronization
	// search; the output value is registered regardless but flagged invalid.
	if signalStatus {
		d.lfsr = lfsrNext
		d.idles = idlesNext
		d.relock = relockNext
		d.unlockTimer = unlockTimerNext
		d.locked = lockedNext
		d.unscrambled = unscrambledNext
		d.unscrambledValid = scrambledValid
	} else {
		d.Reset()
		d.unscrambled = unscrambledNext
	}

	return d.unscrambled, d.unscrambledValid, d.locked
}
