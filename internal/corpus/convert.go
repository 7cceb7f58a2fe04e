package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"policyrag/internal/domain"
)

// ConvertPolicies rewrites a nested policies.json document into the
// line-delimited corpus format. The input maps section names either to a
// list of question/answer objects or to a plain text blob; plain sections
// become a single synthesized record so nothing is dropped. Sections are
// emitted in document order so repeated conversions produce identical
// corpora.
func ConvertPolicies(inPath, outPath string) (int, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return 0, fmt.Errorf("read policies: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create corpus: %w", err)
	}
	defer out.Close()

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return 0, fmt.Errorf("parse policies: expected top-level object")
	}

	enc := json.NewEncoder(out)
	count := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return count, fmt.Errorf("parse policies: %w", err)
		}
		section, ok := tok.(string)
		if !ok {
			return count, fmt.Errorf("parse policies: non-string section key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return count, fmt.Errorf("parse section %q: %w", section, err)
		}
		n, err := writeSection(enc, section, raw)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

func writeSection(enc *json.Encoder, section string, raw json.RawMessage) (int, error) {
	var pairs []domain.Record
	if err := json.Unmarshal(raw, &pairs); err == nil {
		count := 0
		for _, p := range pairs {
			if p.Question == "" || p.Answer == "" {
				continue
			}
			p.Section = section
			if err := enc.Encode(p); err != nil {
				return count, fmt.Errorf("write corpus: %w", err)
			}
			count++
		}
		return count, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || strings.TrimSpace(text) == "" {
		return 0, nil
	}
	rec := domain.Record{
		Section:  section,
		Question: fmt.Sprintf("What is the %s policy?", section),
		Answer:   strings.TrimSpace(text),
	}
	if err := enc.Encode(rec); err != nil {
		return 0, fmt.Errorf("write corpus: %w", err)
	}
	return 1, nil
}
