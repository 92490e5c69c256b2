package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/layer-3/sweeper/adapters/events"
	"github.com/layer-3/sweeper/adapters/store"
	"github.com/layer-3/sweeper/service"
	sweeperhttp "github.com/layer-3/sweeper/transport/http"
)

// Loggers per subsystem. A single backend logger is created and all
// subsystem loggers created from it write to the backend.
var (
	backendLog = btclog.NewBackend(os.Stdout)

	swpdLog = backendLog.Logger("SWPD")
	srvcLog = backendLog.Logger("SRVC")
	storLog = backendLog.Logger("STOR")
	evntLog = backendLog.Logger("EVNT")
	httpLog = backendLog.Logger("HTTP")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"SWPD": swpdLog,
	"SRVC": srvcLog,
	"STOR": storLog,
	"EVNT": evntLog,
	"HTTP": httpLog,
}

func init() {
	service.UseLogger(srvcLog)
	store.UseLogger(storLog)
	events.UseLogger(evntLog)
	sweeperhttp.UseLogger(httpLog)
}

func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseLogLevels splits a debuglevel option into a global level and
// per-subsystem overrides.
func parseLogLevels(debugLevel string) (string, map[string]string, error) {
	global := ""
	overrides := make(map[string]string)

	for _, part := range strings.Split(debugLevel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		subsysID, level, isPair := strings.Cut(part, "=")
		if !isPair {
			if global != "" {
				return "", nil, fmt.Errorf("multiple global log levels in %q", debugLevel)
			}
			level = subsysID
		} else if _, ok := subsystemLoggers[subsysID]; !ok {
			return "", nil, fmt.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsystems %v", subsysID, supportedSubsystems())
		}

		if _, ok := btclog.LevelFromString(level); !ok {
			return "", nil, fmt.Errorf("the specified debug level [%v] is invalid", level)
		}

		if isPair {
			overrides[subsysID] = level
		} else {
			global = level
		}
	}

	return global, overrides, nil
}

func validateLogLevels(debugLevel string) error {
	_, _, err := parseLogLevels(debugLevel)
	return err
}

// setLogLevels applies a validated debuglevel option.
func setLogLevels(debugLevel string) {
	global, overrides, err := parseLogLevels(debugLevel)
	if err != nil {
		return
	}

	if global != "" {
		level, _ := btclog.LevelFromString(global)
		for _, logger := range subsystemLoggers {
			logger.SetLevel(level)
		}
	}
	for subsysID, lvl := range overrides {
		level, _ := btclog.LevelFromString(lvl)
		subsystemLoggers[subsysID].SetLevel(level)
	}
}
