package phy

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Stream replay buffer for the transmit path.
 *
 *		Half duplex transmission must be able to restart a frame from
 *		the beginning if a collision is detected inside the collision
 *		window, so the first 54 octets of the frame in flight (one
 *		minimum frame's worth) are held until the MAC declares them
 *		safe.  Until then the producer stalls once the window is full.
 *
 *		Once released the buffer degrades to a plain FIFO: consumed
 *		octets are discarded and the rest of the frame streams through.
 *
 *--------------------------------------------------------------------------------*/

import (
	"github.com/pkg/errors"
)

// Octets of the current frame held for replay.
const REPLAY_BUFFER_SIZE = 54

var ErrNotReplayable = errors.New("frame start no longer buffered")

type replayOctet struct {
	data byte
	last bool
}

type ReplayBuffer struct {
	held []replayOctet
	rd   int
	done bool
}

func NewReplayBuffer() *ReplayBuffer {
	return new(ReplayBuffer)
}

/*--------------------------------------------------------------------------------
 *
 * Function:	Offer
 *
 * Purpose:	Present one octet from the producer.
 *
 * Inputs:	data	- Octet value.
 *
 *		last	- True on the final octet of a frame.
 *
 * Returns:	True if the octet was accepted.  False means not ready: the
 *		replay window is full and still held, and the producer must
 *		retry the same octet on a later cycle.
 *
 *--------------------------------------------------------------------------------*/

func (b *ReplayBuffer) Offer(data byte, last bool) bool {
	if len(b.held) >= REPLAY_BUFFER_SIZE {
		return false
	}
	b.held = append(b.held, replayOctet{data: data, last: last})
	return true
}

// Next delivers the next octet to the consumer.  ok is false when nothing is
// pending this cycle.  While the frame start is held the read position simply
// advances; after Done the consumed octet is discarded, freeing space for the
// producer.
func (b *ReplayBuffer) Next() (data byte, last bool, ok bool) {
	if b.rd >= len(b.held) {
		return 0, false, false
	}
	var o = b.held[b.rd]
	if b.done {
		b.held = b.held[1:]
	} else {
		b.rd++
	}
	return o.data, o.last, true
}

// Replayable reports whether the start of the current frame is still held,
// i.e. whether Replay can rewind to it.
func (b *ReplayBuffer) Replayable() bool {
	return !b.done
}

// Replay rewinds the consumer to the start of the current frame.
func (b *ReplayBuffer) Replay() error {
	if !b.Replayable() {
		return errors.Wrap(ErrNotReplayable, "replay")
	}
	b.rd = 0
	return nil
}

/*--------------------------------------------------------------------------------
 *
 * Function:	SetDone
 *
 * Purpose:	Release or re-arm the replay hold.
 *
 * Inputs:	done	- True once the collision window has passed and the
 *			  frame start no longer needs to be kept.  The caller
 *			  sets it false again before the next frame.
 *
 * Description:	Releasing drops everything the consumer has already taken, so
 *		a frame larger than the window can continue streaming through.
 *
 *--------------------------------------------------------------------------------*/

func (b *ReplayBuffer) SetDone(done bool) {
	if done && !b.done {
		b.held = b.held[b.rd:]
		b.rd = 0
	}
	b.done = done
}

// Pending returns how many octets are buffered ahead of the consumer.
func (b *ReplayBuffer) Pending() int {
	return len(b.held) - b.rd
}
