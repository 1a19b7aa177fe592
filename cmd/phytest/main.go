package main

/*------------------------------------------------------------------
 *
 * Purpose:	Soak and validation harness for the line synchronization
 *		engine.
 *
 * Description:	Generates a scrambled idle stream, optionally corrupts it
 *		with random bit inversions and scripted signal dropouts,
 *		and watches how the descrambler's lock behaves.  Lock
 *		transitions go to the CSV event log and, if enabled, to a
 *		Prometheus endpoint for long unattended runs.
 *
 *		The management register file participates the way it would
 *		in a real transceiver: the vendor control register selects
 *		the short unlock hysteresis, the link indication mirrors
 *		lock, and bad symbols feed the symbol error counter.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	phy "github.com/kmoseley/softphy/src"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "Soak configuration YAML file")
	var cycles = pflag.Uint64P("cycles", "n", 0, "Cycles to run, two line bits each. Overrides the config file.")
	var testMode = pflag.BoolP("test-mode", "t", false, "Use the short unlock hysteresis threshold")
	var bitErrorRate = pflag.Float64P("bit-error-rate", "e", -1, "Probability of inverting each line bit. Overrides the config file.")
	var logPath = pflag.StringP("log", "l", "", "Event log file, or a directory for daily names")
	var metricsListen = pflag.StringP("metrics-listen", "m", "", "Listen address for the Prometheus /metrics endpoint")
	var verbose = pflag.BoolP("verbose", "v", false, "Verbose. Log every lock transition as it happens.")
	var version = pflag.Bool("version", false, "Display version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Line synchronization soak harness.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Feeds a scrambled idle stream, with optional impairments, through\n")
		fmt.Fprintf(os.Stderr, "the descrambler and reports on lock stability.\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *version {
		phy.PrintVersion(*verbose)
		os.Exit(0)
	}

	var config, configErr = phy.LoadSoakConfig(*configPath)
	if configErr != nil {
		log.Fatal("Bad configuration", "error", configErr)
	}
	if *cycles != 0 {
		config.Cycles = *cycles
	}
	if *testMode {
		config.TestMode = true
	}
	if *bitErrorRate >= 0 {
		config.BitErrorRate = *bitErrorRate
	}
	if *logPath != "" {
		config.LogPath = *logPath
	}
	if *metricsListen != "" {
		config.MetricsListen = *metricsListen
	}
	if err := config.Validate(); err != nil {
		log.Fatal("Bad configuration", "error", err)
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	os.Exit(run(config))
}

func run(config *phy.SoakConfig) int {
	var eventLog, logErr = phy.NewLineLog(config.LogPath, config.TimestampFormat)
	if logErr != nil {
		log.Fatal("Cannot open event log", "error", logErr)
	}
	defer eventLog.Term()

	var registry = prometheus.NewRegistry()
	var metrics = phy.NewLineMetrics(registry)
	if config.MetricsListen != "" {
		var mux = http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			log.Info("Serving metrics", "address", config.MetricsListen)
			if err := http.ListenAndServe(config.MetricsListen, mux); err != nil {
				log.Error("Metrics endpoint failed", "error", err)
			}
		}()
	}

	var seed = config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var rng = rand.New(rand.NewSource(seed))

	var scrambler = phy.NewScrambler()
	var descrambler = phy.NewDescrambler()

	// The register file drives test mode and observes lock, the same
	// wiring a MAC-side integration would use.
	var regs = phy.NewMDIORegs(phy.MDIORegsConfig{PHYID1: 0x2000, PHYID2: 0x5c90})
	if config.TestMode {
		if _, err := regs.Access(phy.MDIO_REG_VCR, phy.VCR_DESCRAMBLER_TEST, true); err != nil {
			log.Fatal("Cannot set vendor control register", "error", err)
		}
	}

	log.Info("Starting soak",
		"cycles", config.Cycles,
		"test_mode", regs.DescramblerTest(),
		"bit_error_rate", config.BitErrorRate,
		"signal_drops", len(config.SignalDrops),
		"seed", seed)

	var locks, unlocks, symbolErrors uint64
	var wasLocked = false
	var firstLockCycle = uint64(0)

	var logEvent = func(cycle uint64, event string, d *phy.Descrambler) {
		log.Debug("Line event", "cycle", cycle, "event", event)
		if err := eventLog.Write(phy.LineEvent{
			Cycle:  cycle,
			Event:  event,
			Locked: d.Locked(),
		}); err != nil {
			log.Error("Event log write failed", "error", err)
		}
	}

	for cycle := uint64(0); cycle < config.Cycles; cycle++ {
		var signal = true
		for _, drop := range config.SignalDrops {
			if cycle >= drop.AtCycle && cycle < drop.AtCycle+drop.Duration {
				signal = false
				break
			}
		}

		var line = scrambler.Step(0b11, 0b10)
		if config.BitErrorRate > 0 {
			if rng.Float64() < config.BitErrorRate {
				line ^= 0b10
			}
			if rng.Float64() < config.BitErrorRate {
				line ^= 0b01
			}
		}

		var out, valid, locked = descrambler.Step(line, 0b10, signal, regs.DescramblerTest())

		metrics.CyclesTotal.Inc()
		if !signal {
			metrics.SignalLossTotal.Inc()
		}
		if locked && valid != 0 && out != 0b11 {
			symbolErrors++
			metrics.SymbolErrorsTotal.Inc()
			regs.CountSymbolError()
		}

		if locked != wasLocked {
			if locked {
				locks++
				metrics.RelocksTotal.Inc()
				metrics.Locked.Set(1)
				if locks == 1 {
					firstLockCycle = cycle
				}
				logEvent(cycle, "lock", descrambler)
			} else {
				unlocks++
				metrics.UnlocksTotal.Inc()
				metrics.Locked.Set(0)
				if signal {
					logEvent(cycle, "unlock", descrambler)
				} else {
					logEvent(cycle, "signal-lost", descrambler)
				}
			}
			regs.SetLink(locked)
			wasLocked = locked
		}
	}

	var secr, _ = regs.Access(phy.MDIO_REG_SECR, 0, false)

	log.Info("Soak finished",
		"locks", locks,
		"unlocks", unlocks,
		"first_lock_cycle", firstLockCycle,
		"symbol_errors", symbolErrors,
		"symbol_error_register", secr,
		"locked_at_end", descrambler.Locked())

	if locks == 0 {
		log.Error("Descrambler never locked")
		return 1
	}
	return 0
}
