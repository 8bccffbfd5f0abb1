package journal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	tipHeightRe  = regexp.MustCompile(`\bheight=(\d+)\b`)
	tipHashRe    = regexp.MustCompile(`(?:best|hash)=([0-9a-fA-F]{8,64})`)
	tipAnyHashRe = regexp.MustCompile(`\b([0-9a-fA-F]{8,64})\b`)
	tipTxRe      = regexp.MustCompile(`\btx=(\d+)\b`)
)

const maxTipEntries = 200

// Tip is one UpdateTip line of debug.log
type Tip struct {
	Height  int64     `json:"height" yaml:"height"`
	Hash    string    `json:"hash" yaml:"hash"`
	Time    time.Time `json:"time,omitempty" yaml:"time,omitempty"`
	TxTotal *int64    `json:"tx_total,omitempty" yaml:"tx_total,omitempty"`
	// Interval is the time since the previous tip, zero when unknown.
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	// Transactions in this block excluding the coinbase and coinstake.
	Transactions *int64 `json:"transactions,omitempty" yaml:"transactions,omitempty"`
}

// Empty reports whether the block carried no user transactions
func (t Tip) Empty() bool {
	return t.Transactions != nil && *t.Transactions == 0
}

// ParseUpdateTips extracts the newest limit distinct tips from debug.log
// lines, highest first.
func ParseUpdateTips(lines []string, limit int) []Tip {
	seen := make(map[int64]bool)
	var tips []Tip

	for i := len(lines) - 1; i >= 0 && len(tips) < maxTipEntries; i-- {
		line := lines[i]
		if !strings.Contains(line, "UpdateTip") {
			continue
		}
		tip, ok := parseTipLine(line)
		if !ok || seen[tip.Height] {
			continue
		}
		seen[tip.Height] = true
		tips = append(tips, tip)
	}

	sort.SliceStable(tips, func(i, j int) bool { return tips[i].Height > tips[j].Height })

	for i := 0; i+1 < len(tips); i++ {
		cur, prev := &tips[i], tips[i+1]
		if !cur.Time.IsZero() && !prev.Time.IsZero() {
			d := cur.Time.Sub(prev.Time)
			if d < 0 {
				d = -d
			}
			cur.Interval = d
		}
		if cur.TxTotal != nil && prev.TxTotal != nil {
			diff := *cur.TxTotal - *prev.TxTotal
			if diff < 0 {
				diff = -diff
			}
			diff -= 2
			if diff < 0 {
				diff = 0
			}
			cur.Transactions = &diff
		}
	}

	if limit > 0 && len(tips) > limit {
		tips = tips[:limit]
	}
	return tips
}

func parseTipLine(line string) (Tip, bool) {
	m := tipHeightRe.FindStringSubmatch(line)
	if m == nil {
		return Tip{}, false
	}
	height, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Tip{}, false
	}
	tip := Tip{Height: height, Hash: "-"}

	if h := tipHashRe.FindStringSubmatch(line); h != nil {
		tip.Hash = shortHash(h[1])
	} else if h := tipAnyHashRe.FindStringSubmatch(line); h != nil {
		tip.Hash = shortHash(h[1])
	}

	stamp, _, _ := strings.Cut(line, " ")
	if ts, err := time.Parse(time.RFC3339, stamp); err == nil {
		tip.Time = ts
	}

	if tx := tipTxRe.FindStringSubmatch(line); tx != nil {
		if n, err := strconv.ParseInt(tx[1], 10, 64); err == nil {
			tip.TxTotal = &n
		}
	}
	return tip, true
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
