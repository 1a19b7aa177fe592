package phy

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Management register file for the transceiver: the clause 22
 *		basic register set plus a vendor control register and two
 *		event counters.
 *
 * Description: This block is an independent peer of the descrambler; they
 *		share no state.  MAC-side logic consults the control bits
 *		(loopback, power down, isolate, collision test) through the
 *		accessors and feeds the event counters through the Count
 *		hooks, while station management reads and writes registers
 *		through Access.
 *
 *		Bus arbitration is out of scope.  Access models a single
 *		already-granted transaction: an error return is the bus error
 *		response, a nil return is the ack.
 *
 *--------------------------------------------------------------------------------*/

import (
	"github.com/pkg/errors"
)

// Register addresses.
const (
	MDIO_REG_BMCR   = 0 // basic mode control
	MDIO_REG_BMSR   = 1 // basic mode status
	MDIO_REG_PHYID1 = 2
	MDIO_REG_PHYID2 = 3
	MDIO_REG_VCR    = 16 // vendor control
	MDIO_REG_FCCR   = 20 // false carrier counter
	MDIO_REG_SECR   = 21 // symbol error counter
)

// BMCR bits.  Speed selection and duplex read back as written defaults;
// there is no autonegotiation, so those bits are hardwired zero.
const (
	BMCR_RESET          = 1 << 15 // self clearing
	BMCR_LOOPBACK       = 1 << 14
	BMCR_SPEED_100      = 1 << 13 // read only, always set
	BMCR_POWER_DOWN     = 1 << 11
	BMCR_ISOLATE        = 1 << 10
	BMCR_DUPLEX         = 1 << 8
	BMCR_COLLISION_TEST = 1 << 7
)

const BMCR_WRITE_MASK = BMCR_LOOPBACK | BMCR_POWER_DOWN | BMCR_ISOLATE |
	BMCR_DUPLEX | BMCR_COLLISION_TEST

const BMCR_DEFAULT = BMCR_SPEED_100 | BMCR_DUPLEX

// BMSR bits.
const (
	BMSR_100BASE_TX_FD = 1 << 14
	BMSR_100BASE_TX_HD = 1 << 13
	BMSR_LINK_STATUS   = 1 << 2 // latch low
	BMSR_EXTENDED_CAP  = 1 << 0
)

const BMSR_CAPABILITIES = BMSR_100BASE_TX_FD | BMSR_100BASE_TX_HD | BMSR_EXTENDED_CAP

// Vendor control register bits.
const (
	VCR_DESCRAMBLER_TEST = 1 << 0 // short unlock hysteresis for test
)

const VCR_WRITE_MASK = VCR_DESCRAMBLER_TEST

var ErrUnmappedRegister = errors.New("unmapped management register")

type MDIORegsConfig struct {
	// Identifier register contents; the OUI/model/revision split is the
	// integrator's concern, the register file just presents two words.
	PHYID1 uint16
	PHYID2 uint16

	// Behave as if an unmanaged bus pull-up were present: writes to
	// unmapped addresses are silently ignored and reads return all ones,
	// instead of signalling a bus error.
	EmulatePullup bool
}

type MDIORegs struct {
	config MDIORegsConfig

	bmcr uint16
	vcr  uint16

	link      bool
	linkLatch bool // cleared link observation, held until BMSR is read

	falseCarrier uint16
	symbolError  uint16
}

func NewMDIORegs(config MDIORegsConfig) *MDIORegs {
	var r = &MDIORegs{config: config}
	r.reset()
	return r
}

func (r *MDIORegs) reset() {
	r.bmcr = BMCR_DEFAULT
	r.vcr = 0
	r.linkLatch = !r.link
	r.falseCarrier = 0
	r.symbolError = 0
}

/*--------------------------------------------------------------------------------
 *
 * Function:	Access
 *
 * Purpose:	Perform one management bus transaction.
 *
 * Inputs:	addr	- Register address, 5 bits.
 *
 *		wdata	- Data to write.  Ignored for reads.
 *
 *		we	- Write enable.
 *
 * Returns:	Read data and nil for an acked transaction.  For an unmapped
 *		address the error response is ErrUnmappedRegister, unless the
 *		register file is configured to emulate a pull-up, in which
 *		case writes are dropped and reads return 0xffff.
 *
 * Description:	Writes to read-only registers are acked and ignored, matching
 *		usual PHY behavior.  Reading BMSR clears the latched-low link
 *		indication; reading a counter clears it.
 *
 *--------------------------------------------------------------------------------*/

func (r *MDIORegs) Access(addr uint8, wdata uint16, we bool) (uint16, error) {
	switch addr & 0x1f {
	case MDIO_REG_BMCR:
		if we {
			if wdata&BMCR_RESET != 0 {
				r.reset()
			} else {
				r.bmcr = wdata&BMCR_WRITE_MASK | BMCR_SPEED_100
			}
		}
		return r.bmcr, nil

	case MDIO_REG_BMSR:
		var status uint16 = BMSR_CAPABILITIES
		if r.link && !r.linkLatch {
			status |= BMSR_LINK_STATUS
		}
		if !we {
			r.linkLatch = !r.link
		}
		return status, nil

	case MDIO_REG_PHYID1:
		return r.config.PHYID1, nil

	case MDIO_REG_PHYID2:
		return r.config.PHYID2, nil

	case MDIO_REG_VCR:
		if we {
			r.vcr = wdata & VCR_WRITE_MASK
		}
		return r.vcr, nil

	case MDIO_REG_FCCR:
		var count = r.falseCarrier
		if !we {
			r.falseCarrier = 0
		}
		return count, nil

	case MDIO_REG_SECR:
		var count = r.symbolError
		if !we {
			r.symbolError = 0
		}
		return count, nil
	}

	if r.config.EmulatePullup {
		return 0xffff, nil
	}
	return 0, errors.Wrapf(ErrUnmappedRegister, "address %d", addr&0x1f)
}

// SetLink records the link indication from the receive path.  A downward
// transition is latched so that station management polling BMSR cannot miss
// a link drop between reads.
func (r *MDIORegs) SetLink(up bool) {
	if !up {
		r.linkLatch = true
	}
	r.link = up
}

// Event counter hooks.  Both counters saturate rather than wrap and are
// cleared when read.

func (r *MDIORegs) CountFalseCarrier() {
	if r.falseCarrier != 0xffff {
		r.falseCarrier++
	}
}

func (r *MDIORegs) CountSymbolError() {
	if r.symbolError != 0xffff {
		r.symbolError++
	}
}

// Control bit accessors for the transceiver model.

func (r *MDIORegs) Loopback() bool { return r.bmcr&BMCR_LOOPBACK != 0 }

func (r *MDIORegs) PowerDown() bool { return r.bmcr&BMCR_POWER_DOWN != 0 }

func (r *MDIORegs) Isolate() bool { return r.bmcr&BMCR_ISOLATE != 0 }

func (r *MDIORegs) CollisionTest() bool { return r.bmcr&BMCR_COLLISION_TEST != 0 }

func (r *MDIORegs) DescramblerTest() bool { return r.vcr&VCR_DESCRAMBLER_TEST != 0 }
