package state

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/multierr"

	"pcc/config"
	"pcc/misc"
)

// Setup loads configuration from configFile (defaults when empty), creates
// debug report when requested and starts logging. Standard library log is
// redirected to the program log until Teardown.
func (e *LocalEnv) Setup(configFile string, withReport bool) error {
	var err error

	if e.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if withReport {
		if e.Rpt, err = e.Cfg.Reporting.Prepare(e.RunID); err != nil {
			return fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			// both what user gave us and what it turned into
			name := filepath.Base(configFile)
			if err := e.Rpt.Snapshot("config/original/"+name, configFile); err != nil {
				return err
			}
			if data, err := config.Dump(e.Cfg); err == nil {
				e.Rpt.StoreData("config/"+name, data)
			}
		}
	}
	if e.Log, err = e.Cfg.Logging.Prepare(e.Rpt); err != nil {
		return fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.RedirectStdLog()
	return nil
}

// Teardown flushes logs, writes debug report and removes empty panic log.
// Errors could not be logged at this point and are returned instead.
func (e *LocalEnv) Teardown() (err error) {
	e.RestoreStdLog()

	if e.Rpt != nil {
		if er := e.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}

	if e.Cfg == nil || len(e.Cfg.Logging.FileLogger.Destination) == 0 {
		return err
	}
	debug.SetCrashOutput(nil, debug.CrashOptions{})
	fname := filepath.Join(filepath.Dir(e.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
	if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
		if er := os.Remove(fname); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
		}
	}
	return err
}
