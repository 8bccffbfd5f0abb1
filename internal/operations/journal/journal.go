package journal

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
)

// UnitEntries reads the newest count journal entries of a systemd unit,
// returned oldest first.
func UnitEntries(unit string, count int) ([]Entry, error) {
	count = clampCount(count)

	j, err := sdjournal.NewJournal()
	if err != nil {
		return nil, fmt.Errorf("failed to open systemd journal: %w", err)
	}
	defer j.Close()

	if err := j.AddMatch("_SYSTEMD_UNIT=" + unit); err != nil {
		return nil, fmt.Errorf("failed to add systemd unit match: %w", err)
	}
	if err := j.SeekTail(); err != nil {
		return nil, fmt.Errorf("failed to seek to end of journal: %w", err)
	}

	var entries []Entry
	deadline := time.Now().Add(10 * time.Second)

	for len(entries) < count && time.Now().Before(deadline) {
		n, err := j.Previous()
		if err != nil {
			return nil, fmt.Errorf("failed to read previous journal entry: %w", err)
		}
		if n == 0 {
			break
		}

		raw, err := j.GetEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to get journal entry: %w", err)
		}
		message := raw.Fields[sdjournal.SD_JOURNAL_FIELD_MESSAGE]
		if message == "" {
			continue
		}

		fields := make(map[string]string)
		if pid := raw.Fields[sdjournal.SD_JOURNAL_FIELD_PID]; pid != "" {
			fields["pid"] = pid
		}
		if host := raw.Fields[sdjournal.SD_JOURNAL_FIELD_HOSTNAME]; host != "" {
			fields["hostname"] = host
		}

		entries = append(entries, Entry{
			Time:    time.UnixMicro(int64(raw.RealtimeTimestamp)),
			Level:   priorityToLevel(raw.Fields[sdjournal.SD_JOURNAL_FIELD_PRIORITY]),
			Module:  unit,
			Message: message,
			Fields:  fields,
		})
	}

	// collected newest first
	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

// priorityToLevel converts systemd journal priority to log level string
func priorityToLevel(priority string) string {
	switch priority {
	case "0":
		return "EMERG"
	case "1":
		return "ALERT"
	case "2":
		return "CRIT"
	case "3":
		return "ERROR"
	case "4":
		return "WARN"
	case "5":
		return "NOTICE"
	case "7":
		return "DEBUG"
	default:
		return "INFO"
	}
}
