package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Detail is the enrichment payload for one event, decoded from the
// GetSideBarEvent endpoint.
type Detail struct {
	EventID    string
	Category   string
	Rooms      []string
	Professors []string
	Notes      string
}

// sidebarPayload mirrors the GetSideBarEvent response: a labelled list of
// HTML-bearing content blocks. Labels vary with the deployment locale, so
// both the English and French forms are recognized.
type sidebarPayload struct {
	FederationID string           `json:"federationId"`
	Elements     []sidebarElement `json:"elements"`
}

type sidebarElement struct {
	Label   string `json:"label"`
	Content string `json:"content"`
	IsNotes bool   `json:"isNotes"`
}

// ParseSideBar decodes one sidebar response into a Detail. Unknown labels
// are ignored; an empty element list is not an error, just an empty Detail.
func ParseSideBar(eventID string, body []byte) (*Detail, error) {
	var payload sidebarPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding sidebar payload: %w", err)
	}

	detail := &Detail{EventID: eventID}
	for _, el := range payload.Elements {
		if el.IsNotes {
			if text := strings.Join(fragmentLines(el.Content), "\n"); text != "" {
				if detail.Notes != "" {
					detail.Notes += "\n"
				}
				detail.Notes += text
			}
			continue
		}

		switch strings.ToLower(strings.TrimSpace(el.Label)) {
		case "category", "catégorie", "categorie":
			if lines := fragmentLines(el.Content); len(lines) > 0 {
				detail.Category = lines[0]
			}
		case "room", "rooms", "salle", "salles":
			detail.Rooms = append(detail.Rooms, splitList(el.Content)...)
		case "staff", "teacher", "enseignant", "enseignants", "professeur":
			detail.Professors = append(detail.Professors, splitList(el.Content)...)
		}
	}
	return detail, nil
}

// splitList renders an HTML content block and splits it into items on line
// breaks and commas.
func splitList(fragment string) []string {
	var items []string
	for _, line := range fragmentLines(fragment) {
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}
