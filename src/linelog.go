package phy

/*------------------------------------------------------------------
 *
 * Purpose:	Save line synchronization events to a log file.
 *
 * Description: Rather than dumping raw engine state, write separated
 *		properties into CSV format for easy reading and later
 *		processing in a spreadsheet.
 *
 *		There are two alternatives here.
 *
 *		A full file path writes a single file, typically kept
 *		under control with logrotate.
 *
 *		A directory creates automatic daily file names inside it.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/errors"
)

// Default strftime pattern for the timestamp column.
const LINELOG_TIME_FORMAT = "%Y-%m-%dT%H:%M:%S"

type LineEvent struct {
	Cycle       uint64
	Event       string // "lock", "unlock", "relock", "signal-lost", "symbol-error"
	Locked      bool
	LFSR        uint16
	IdleCounter uint8
	UnlockTimer uint16
}

type LineLog struct {
	dailyNames bool
	path       string // directory for daily names, otherwise full file name
	timeFormat string
	fp         *os.File
	openFname  string
}

/*------------------------------------------------------------------
 *
 * Function:	NewLineLog
 *
 * Purpose:	Initialization at start of application.
 *
 * Inputs:	path	- Log file name or a directory for daily names.
 *		          Empty string disables the feature.
 *
 *		timeFormat - strftime pattern for the timestamp column.
 *		          Empty string selects the default.
 *
 *------------------------------------------------------------------*/

func NewLineLog(path string, timeFormat string) (*LineLog, error) {
	var l = &LineLog{path: path, timeFormat: timeFormat}

	if l.timeFormat == "" {
		l.timeFormat = LINELOG_TIME_FORMAT
	}
	if _, err := strftime.New(l.timeFormat); err != nil {
		return nil, errors.Wrapf(err, "bad timestamp format %q", timeFormat)
	}

	if len(path) == 0 {
		return l, nil
	}

	var stat, statErr = os.Stat(path)
	switch {
	case statErr == nil && stat.IsDir():
		l.dailyNames = true
	case statErr == nil:
		// Existing plain file, append to it.
	default:
		// Doesn't exist.  Treat a trailing separator as a request for
		// a daily-name directory and try to create it.  Parent must
		// exist; we don't create multiple levels like "mkdir -p".
		if path[len(path)-1] == os.PathSeparator {
			if err := os.Mkdir(path, 0755); err != nil {
				return nil, errors.Wrap(err, "create log directory")
			}
			l.dailyNames = true
		}
	}

	return l, nil
}

/*------------------------------------------------------------------
 *
 * Function:	Write
 *
 * Purpose:	Save one synchronization event to the log file.
 *
 * Description:	Daily log file names are generated from the current date,
 *		UTC.  The current file is closed and a new one opened when
 *		the date rolls over.  A header line is written only when
 *		the file did not already exist.
 *
 *------------------------------------------------------------------*/

func (l *LineLog) Write(e LineEvent) error {
	if len(l.path) == 0 {
		return nil
	}

	var now = time.Now().UTC()

	if l.dailyNames {
		var fname = now.Format("2006-01-02.log")

		// Close current file if the name has changed.
		if l.fp != nil && fname != l.openFname {
			l.Term()
		}

		if l.fp == nil {
			var fullPath = filepath.Join(l.path, fname)
			if err := l.open(fullPath); err != nil {
				return err
			}
			l.openFname = fname
		}
	} else if l.fp == nil {
		if err := l.open(l.path); err != nil {
			return err
		}
	}

	var timestamp, _ = strftime.Format(l.timeFormat, now)
	var _, err = fmt.Fprintf(l.fp, "%s,%d,%s,%t,0x%03x,%d,%d\n",
		timestamp, e.Cycle, e.Event, e.Locked, e.LFSR, e.IdleCounter, e.UnlockTimer)
	return errors.Wrap(err, "write log")
}

func (l *LineLog) open(fullPath string) error {
	// See if the file already exists and is not empty.  Used below to
	// write a header only if this will be the first line.
	var stat, statErr = os.Stat(fullPath)
	var alreadyThere = statErr == nil && stat.Size() > 0

	var f, openErr = os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if openErr != nil {
		return errors.Wrapf(openErr, "open log file %q", fullPath)
	}
	l.fp = f

	if !alreadyThere {
		fmt.Fprintf(l.fp, "time,cycle,event,locked,lfsr,idle_counter,unlock_timer\n")
	}
	return nil
}

// Term closes the log file.  Called at application exit and on date rollover.
func (l *LineLog) Term() {
	if l.fp != nil {
		l.fp.Close()
		l.fp = nil
		l.openFname = ""
	}
}
