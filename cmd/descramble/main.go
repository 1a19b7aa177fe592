package main

/*------------------------------------------------------------------
 *
 * Purpose:	Filter a captured line stream through the descrambler.
 *
 * Description:	Reads hex octets on stdin (whitespace ignored), most
 *		significant bit first, clocks them through the descrambler
 *		two bits per cycle, and writes the descrambled octets as hex
 *		on stdout.  Lock transitions are reported on stderr with the
 *		bit offset where they happened, which makes it easy to see
 *		where in a capture synchronization was usable.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	phy "github.com/kmoseley/softphy/src"
)

func main() {
	var testMode = pflag.BoolP("test-mode", "t", false, "Use the short unlock hysteresis threshold")
	var version = pflag.Bool("version", false, "Display version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Descramble a captured line stream.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Reads hex octets on stdin, writes descrambled hex octets on stdout.\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *version {
		phy.PrintVersion(false)
		os.Exit(0)
	}

	var input, readErr = io.ReadAll(os.Stdin)
	if readErr != nil {
		log.Fatal("Cannot read stdin", "error", readErr)
	}

	var cleaned = strings.Join(strings.Fields(string(input)), "")
	var octets, decodeErr = hex.DecodeString(cleaned)
	if decodeErr != nil {
		log.Fatal("Input is not hex", "error", decodeErr)
	}

	var descrambler = phy.NewDescrambler()
	var out = make([]byte, 0, len(octets))

	var wasLocked = false
	for i, octet := range octets {
		var decoded byte
		for shift := 6; shift >= 0; shift -= 2 {
			var pair = octet >> shift & 3
			var bits, _, locked = descrambler.Step(pair, 0b10, true, *testMode)
			decoded = decoded<<2 | bits

			if locked != wasLocked {
				var state = "unlocked"
				if locked {
					state = "locked"
				}
				log.Info("Lock transition", "state", state, "bit", i*8+(6-shift)+2)
				wasLocked = locked
			}
		}
		out = append(out, decoded)
	}

	fmt.Println(hex.EncodeToString(out))
}
