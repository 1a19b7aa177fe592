package phy

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Transmit side-stream scrambler for the 100BASE-TX line.
 *
 *		Whitens outgoing data with the x^11 + x^9 + 1 keystream so the
 *		line has no strong spectral lines.  The receive descrambler
 *		recovers synchronization from the stream itself, so there is no
 *		seed agreement; the only requirement is a nonzero state.
 *
 *--------------------------------------------------------------------------------*/

// Any nonzero value works; the polynomial is maximum length so the keystream
// period is 2047 bits from every nonzero seed.
const SCRAMBLE_SEED = 0x7ff

type Scrambler struct {
	lfsr uint16 // 11 bits, never zero
}

func NewScrambler() *Scrambler {
	return &Scrambler{lfsr: SCRAMBLE_SEED}
}

// Seed replaces the LFSR state.  A zero value is coerced to the default seed
// since an all-zero side-stream scrambler would emit plaintext forever.
func (s *Scrambler) Seed(state uint16) {
	state &= DESCRAMBLE_LFSR_MASK
	if state == 0 {
		state = SCRAMBLE_SEED
	}
	s.lfsr = state
}

func (s *Scrambler) keystreamBit() uint8 {
	var k = uint8((s.lfsr >> 10 ^ s.lfsr >> 8) & 1)
	s.lfsr = (s.lfsr<<1 | uint16(k)) & DESCRAMBLE_LFSR_MASK
	return k
}

/*--------------------------------------------------------------------------------
 *
 * Function:	Step
 *
 * Purpose:	Scramble one cycle's worth of data bits.
 *
 * Inputs:	data		- Up to two data bits.  Lane 1 is the earlier
 *				  bit, matching the descrambler's convention.
 *
 *		valid		- Validity mask with the same encoding as the
 *				  descrambler input: bit 0 for a one-bit
 *				  transfer, bit 1 for a two-bit transfer.
 *
 * Returns:	The scrambled line bits in the same lanes.  The LFSR only
 *		advances for bits actually consumed, keeping the pair of
 *		scrambler and descrambler cycle-aligned.
 *
 *--------------------------------------------------------------------------------*/

func (s *Scrambler) Step(data uint8, valid uint8) uint8 {
	data &= 3
	valid &= 3

	var out uint8
	switch {
	case valid&2 != 0:
		var k1 = s.keystreamBit()
		var k0 = s.keystreamBit()
		out = (data>>1&1^k1)<<1 | (data & 1 ^ k0)
	case valid&1 != 0:
		var k = s.keystreamBit()
		out = (data >> 1 & 1 ^ k) << 1
	}
	return out
}
