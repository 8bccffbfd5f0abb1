package services

import (
	"fmt"
	"path/filepath"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/journal"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
)

const (
	LogSourceJournal = "journal"
	LogSourceDebug   = "debug"
	LogSourceTips    = "tips"
	LogSourceAgent   = "agent"
)

// LogsResult carries whichever log view was requested
type LogsResult struct {
	Source  string          `json:"source" yaml:"source"`
	Entries []journal.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
	Lines   []string        `json:"lines,omitempty" yaml:"lines,omitempty"`
	Tips    []journal.Tip   `json:"tips,omitempty" yaml:"tips,omitempty"`
}

// DebugLogPath returns the daemon's debug.log location
func (s *Services) DebugLogPath() string {
	dir := s.rpc.DataDir()
	if dir == "" {
		dir = s.cfg.Node.WorkingDir
	}
	return filepath.Join(dir, "debug.log")
}

// Logs returns the newest count records from source
func (s *Services) Logs(source string, count int) (*LogsResult, error) {
	res := &LogsResult{Source: source}
	switch source {
	case LogSourceJournal:
		entries, err := journal.UnitEntries(template.DaemonUnit, count)
		if err != nil {
			return nil, err
		}
		res.Entries = entries
	case LogSourceDebug:
		lines, err := journal.TailLines(s.DebugLogPath(), count, s.logger)
		if err != nil {
			return nil, err
		}
		res.Lines = lines
	case LogSourceTips:
		// tips are sparse in debug.log, scan a wide window
		lines, err := journal.TailLines(s.DebugLogPath(), journal.MaxEntries, s.logger)
		if err != nil {
			return nil, err
		}
		res.Tips = journal.ParseUpdateTips(lines, count)
	case LogSourceAgent:
		entries, err := journal.AgentEntries(s.cfg.Logging.FilePath, count, s.logger)
		if err != nil {
			return nil, err
		}
		res.Entries = entries
	default:
		return nil, fmt.Errorf("unknown log source %q", source)
	}
	return res, nil
}
