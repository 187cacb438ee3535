package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Retrieval limits for the passage search.
const (
	DefaultRetrieveK = 5
	MaxRetrieveK     = 100
)

// PassageMetadata identifies the incident a passage was rendered from.
type PassageMetadata struct {
	IncidentID   int     `json:"incident_id"`
	CrashNum     *string `json:"crash_num"`
	IncidentDate *string `json:"incident_date"`
}

// Passage is one incident rendered as text for chat context.
type Passage struct {
	Content  string          `json:"content"`
	Metadata PassageMetadata `json:"metadata"`
}

// Retrieval is the response to a passage search.
type Retrieval struct {
	Query   string    `json:"query"`
	K       int       `json:"k"`
	Results []Passage `json:"results"`
}

// IncidentText renders an incident as one line of "label: value" pairs.
// Missing values are left out.
func IncidentText(r IncidentRecord) string {
	parts := []string{fmt.Sprintf("Incident %d", r.IncidentID)}
	add := func(label string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			parts = append(parts, label+": "+strings.TrimSpace(*v))
		}
	}
	add("Crash number", r.CrashNum)
	add("Date", r.IncidentDate)
	add("Location", r.IncidentLocation)
	add("First harmful event", r.FirstHarmfulEvent)
	add("Light", r.LightCondition)
	add("Weather", r.WeatherCondition)
	add("Road surface", r.RoadSurface)
	add("Traffic control", r.TrafficControlDevice)
	add("Intersection", r.IntersectionType)
	add("Trafficway", r.Trafficway)
	add("Collision", r.CollisionManner)
	add("Harmful event location", r.HarmfulEventLocation)
	add("Work zone", r.IsWorkZone)
	add("Hit and run", r.IsHitAndRun)
	parts = append(parts, fmt.Sprintf("Injuries: %d fatal, %d serious, %d minor",
		r.FatalInjuries, r.SeriousInjuries, r.MinorInjuries))
	parts = append(parts, fmt.Sprintf("Non-motorists: %d pedestrian, %d cyclist",
		r.Pedestrians, r.Cyclists))
	return strings.Join(parts, ". ") + "."
}

// Terms splits text into lowercase letter and digit runs.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// RankPassages scores each incident by how often the distinct query terms
// occur in its text and returns the k best. Incidents matching no term are
// dropped. Ties keep the input order.
func RankPassages(query string, records []IncidentRecord, k int) []Passage {
	wanted := map[string]bool{}
	for _, t := range Terms(query) {
		wanted[t] = true
	}
	if len(wanted) == 0 || k <= 0 {
		return []Passage{}
	}

	type scored struct {
		passage Passage
		score   int
	}
	var hits []scored
	for _, r := range records {
		text := IncidentText(r)
		score := 0
		for _, t := range Terms(text) {
			if wanted[t] {
				score++
			}
		}
		if score == 0 {
			continue
		}
		hits = append(hits, scored{
			passage: Passage{
				Content: text,
				Metadata: PassageMetadata{
					IncidentID:   r.IncidentID,
					CrashNum:     r.CrashNum,
					IncidentDate: r.IncidentDate,
				},
			},
			score: score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]Passage, 0, min(k, len(hits)))
	for i := 0; i < len(hits) && i < k; i++ {
		out = append(out, hits[i].passage)
	}
	return out
}
