package domain

import (
	"encoding/json"
	"strings"
)

// ChecklistAnswer is the yes/no outcome of an inspection point.
type ChecklistAnswer string

const (
	ChecklistAnswerYes ChecklistAnswer = "sim"
	ChecklistAnswerNo  ChecklistAnswer = "nao"
)

// ChecklistItem is one inspection point of a preventive checklist, either
// ticket-specific or copied from a schedule template.
type ChecklistItem struct {
	Key        string          `json:"key,omitempty"`
	Item       string          `json:"item"`
	Resposta   ChecklistAnswer `json:"resposta"`
	Comentario string          `json:"comentario,omitempty"`
}

// rawChecklistItem accepts the loose shapes historical payloads use: bare
// strings, or objects with resposta/status aliases.
type rawChecklistItem struct {
	Key        string  `json:"key"`
	Item       string  `json:"item"`
	Texto      string  `json:"texto"`
	Resposta   string  `json:"resposta"`
	Status     string  `json:"status"`
	Comentario *string `json:"comentario"`
}

// NormalizeAnswer folds any answer variant to sim/nao. Anything starting with
// "n" (accents and case ignored) is a no; everything else, including empty,
// defaults to yes.
func NormalizeAnswer(value string) ChecklistAnswer {
	if strings.HasPrefix(normalizeBase(value), "n") {
		return ChecklistAnswerNo
	}
	return ChecklistAnswerYes
}

// SlugKey derives a stable ASCII key from an item text: diacritics stripped,
// non-alphanumerics collapsed to underscores.
func SlugKey(text string) string {
	base := normalizeBase(text)
	var b strings.Builder
	lastUnderscore := true
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// NormalizeChecklist parses any of the accepted checklist encodings into
// canonical items: a JSON array of strings or objects, an already-decoded
// []any, or newline-separated plain text (schedule templates created by
// hand). Blank items are dropped.
func NormalizeChecklist(raw any) []ChecklistItem {
	switch v := raw.(type) {
	case nil:
		return nil
	case []ChecklistItem:
		return normalizeItems(v)
	case []string:
		items := make([]ChecklistItem, 0, len(v))
		for _, s := range v {
			if item, ok := checklistItemFromText(s); ok {
				items = append(items, item)
			}
		}
		return items
	case []byte:
		return normalizeChecklistText(string(v))
	case string:
		return normalizeChecklistText(v)
	case []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return decodeChecklistJSON(data)
	default:
		return nil
	}
}

func normalizeItems(items []ChecklistItem) []ChecklistItem {
	out := make([]ChecklistItem, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Item)
		if text == "" {
			continue
		}
		key := item.Key
		if key == "" {
			key = SlugKey(text)
		}
		out = append(out, ChecklistItem{
			Key:        key,
			Item:       text,
			Resposta:   NormalizeAnswer(string(item.Resposta)),
			Comentario: strings.TrimSpace(item.Comentario),
		})
	}
	return out
}

func normalizeChecklistText(raw string) []ChecklistItem {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		if items := decodeChecklistJSON([]byte(trimmed)); items != nil {
			return items
		}
	}
	var items []ChecklistItem
	for _, line := range strings.Split(trimmed, "\n") {
		if item, ok := checklistItemFromText(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func decodeChecklistJSON(data []byte) []ChecklistItem {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil
	}
	items := make([]ChecklistItem, 0, len(raws))
	for _, entry := range raws {
		var text string
		if err := json.Unmarshal(entry, &text); err == nil {
			if item, ok := checklistItemFromText(text); ok {
				items = append(items, item)
			}
			continue
		}
		var obj rawChecklistItem
		if err := json.Unmarshal(entry, &obj); err != nil {
			continue
		}
		text = strings.TrimSpace(obj.Item)
		if text == "" {
			text = strings.TrimSpace(obj.Texto)
		}
		if text == "" {
			continue
		}
		answer := obj.Resposta
		if answer == "" {
			answer = obj.Status
		}
		key := obj.Key
		if key == "" {
			key = SlugKey(text)
		}
		item := ChecklistItem{
			Key:      key,
			Item:     text,
			Resposta: NormalizeAnswer(answer),
		}
		if obj.Comentario != nil {
			item.Comentario = strings.TrimSpace(*obj.Comentario)
		}
		items = append(items, item)
	}
	return items
}

func checklistItemFromText(text string) (ChecklistItem, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChecklistItem{}, false
	}
	return ChecklistItem{
		Key:      SlugKey(text),
		Item:     text,
		Resposta: ChecklistAnswerYes,
	}, true
}
