package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"policyrag/internal/domain"
)

// DefaultSection is assigned to records whose source line carries no section.
const DefaultSection = "Unknown"

// maxLineBytes bounds a single corpus line; answers can be long but are
// human-written policy text, not bulk data.
const maxLineBytes = 1 << 20

// Load reads a line-delimited JSON corpus, one record per line. Blank and
// malformed lines are skipped, as are records missing a question or answer.
// Line order is preserved: it is the identity used by the index and the
// cache metadata.
func Load(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var records []domain.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Question == "" || rec.Answer == "" {
			continue
		}
		if rec.Section == "" {
			rec.Section = DefaultSection
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return records, nil
}
