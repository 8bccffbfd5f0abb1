package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

// Entry is one log record, from the journal or a log file
type Entry struct {
	Time    time.Time         `json:"time" yaml:"time"`
	Level   string            `json:"level" yaml:"level"`
	Module  string            `json:"module,omitempty" yaml:"module,omitempty"`
	Message string            `json:"message" yaml:"message"`
	Fields  map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

const MaxEntries = 10000

func clampCount(n int) int {
	if n <= 0 {
		return 0
	}
	if n > MaxEntries {
		return MaxEntries
	}
	return n
}

// TailLines returns up to n trailing lines of path, reading backwards in
// blocks so large files are not loaded whole.
func TailLines(path string, n int, log *logger.Logger) ([]string, error) {
	const readBlockSize = 8192
	const maxLineBufferSize = 4 * 1024 * 1024

	n = clampCount(n)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var (
		offset     = fi.Size()
		lineBuffer []byte
		lines      []string
	)

	for offset > 0 && len(lines) < n {
		blockSize := int64(readBlockSize)
		if offset < blockSize {
			blockSize = offset
		}
		offset -= blockSize

		buf := make([]byte, blockSize)
		if _, err := file.ReadAt(buf, offset); err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		lineBuffer = append(buf, lineBuffer...)

		if len(lineBuffer) > maxLineBufferSize {
			log.Warnf("%s: tail buffer exceeded %d bytes, returning partial result", path, maxLineBufferSize)
			break
		}

		scanner := bufio.NewScanner(bytes.NewReader(lineBuffer))
		scanner.Buffer(make([]byte, 0, 256*1024), maxLineBufferSize)

		var tmpLines []string
		for scanner.Scan() {
			tmpLines = append(tmpLines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			log.Warnf("%s: scanner error: %v", path, err)
			break
		}

		// the first line may be cut in half until we reach the file start
		if offset > 0 && len(tmpLines) > 0 {
			tmpLines = tmpLines[1:]
		}

		if len(tmpLines) >= n {
			lines = tmpLines[len(tmpLines)-n:]
			break
		}
		lines = tmpLines
	}

	return lines, nil
}
