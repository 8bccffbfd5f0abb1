package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

// AgentEntries reads the newest count records of lynx-node's own log file.
// JSON records are decoded; text lines are returned as plain messages.
func AgentEntries(path string, count int, log *logger.Logger) ([]Entry, error) {
	lines, err := TailLines(path, count, log)
	if err != nil {
		return nil, fmt.Errorf("log file not found: %w", err)
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		entries = append(entries, parseAgentLine(line))
	}
	return entries, nil
}

func parseAgentLine(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}

	entry := Entry{Fields: make(map[string]string)}
	for k, v := range raw {
		str, ok := v.(string)
		if !ok {
			str = fmt.Sprintf("%v", v)
		}
		switch k {
		case "level":
			entry.Level = str
		case "message":
			entry.Message = str
		case "module":
			entry.Module = str
		case "timestamp":
			if ts, err := time.ParseInLocation("2006-01-02 15:04:05", str, time.Local); err == nil {
				entry.Time = ts
			}
		default:
			entry.Fields[k] = str
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry
}
