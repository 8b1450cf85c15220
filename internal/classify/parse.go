package classify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sells-group/gfscout/internal/model"
)

var (
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

	// "1. Purely GF Eats - [Dedicated GF]" and "1. Purely GF Eats (Dedicated GF)"
	bracketedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.+?)\s*(?:[-–—:]\s*)?[\[(]([^\])]+)[\])]\s*$`)
	// "1. Purely GF Eats - Dedicated GF"
	dashedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)\s+[-–—:]\s+(.+?)\s*$`)
)

// Parse maps model output onto the given establishments. It prefers a JSON
// array of {place_id, gf_status}; when none is present, or it maps no known
// place, it falls back to the numbered-list format joined by name. Entries
// that name an unknown place or an unknown tier are dropped. The result is
// never nil.
func Parse(raw string, places []model.Establishment) map[string]model.GFStatus {
	text := stripFences(raw)

	if entries, ok := firstVerdictArray(text); ok {
		if out := fromJSON(entries, places); len(out) > 0 {
			return out
		}
	}
	return fromNumberedList(text, places)
}

func stripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// firstVerdictArray decodes the first JSON array in s holding at least one
// object with a place_id or gf_status field. Arrays such as "[2]" citations
// or bracketed tiers in prose are skipped.
func firstVerdictArray(s string) ([]json.RawMessage, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var arr []json.RawMessage
		if err := dec.Decode(&arr); err == nil && hasVerdict(arr) {
			return arr, true
		}
	}
	return nil, false
}

func hasVerdict(arr []json.RawMessage) bool {
	for _, e := range arr {
		var item map[string]json.RawMessage
		if json.Unmarshal(e, &item) != nil {
			continue
		}
		if _, ok := item["place_id"]; ok {
			return true
		}
		if _, ok := item["gf_status"]; ok {
			return true
		}
	}
	return false
}

func fromJSON(entries []json.RawMessage, places []model.Establishment) map[string]model.GFStatus {
	known := make(map[string]struct{}, len(places))
	for _, p := range places {
		known[p.PlaceID] = struct{}{}
	}

	out := make(map[string]model.GFStatus, len(entries))
	for _, e := range entries {
		var item map[string]any
		if err := json.Unmarshal(e, &item); err != nil {
			continue
		}
		id, _ := item["place_id"].(string)
		label, _ := item["gf_status"].(string)
		if id == "" || label == "" {
			continue
		}
		if _, ok := known[id]; !ok {
			continue
		}
		status, ok := model.ParseGFStatus(label)
		if !ok {
			continue
		}
		out[id] = status
	}
	return out
}

func fromNumberedList(text string, places []model.Establishment) map[string]model.GFStatus {
	byName := make(map[string][]string, len(places))
	for _, p := range places {
		key := nameKey(p.Name)
		byName[key] = append(byName[key], p.PlaceID)
	}

	out := make(map[string]model.GFStatus)
	for _, line := range strings.Split(text, "\n") {
		name, label, ok := splitListLine(line)
		if !ok {
			continue
		}
		status, ok := model.ParseGFStatus(label)
		if !ok {
			continue
		}
		for _, id := range byName[nameKey(name)] {
			out[id] = status
		}
	}
	return out
}

func splitListLine(line string) (name, label string, ok bool) {
	if m := bracketedLine.FindStringSubmatch(line); m != nil {
		if _, known := model.ParseGFStatus(m[2]); known {
			return m[1], m[2], true
		}
	}
	if m := dashedLine.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

func nameKey(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `*_"'`)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
