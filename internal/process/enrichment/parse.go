package enrichment

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/core/llm"
)

//go:embed enrichment.schema.json
var enrichmentSchemaJSON string

var enrichmentSchema = llm.NewSchema("enrichment.schema.json", enrichmentSchemaJSON)

// Variant says which of the three ordered parse attempts produced a result.
type Variant string

const (
	VariantStructured Variant = "structured"
	VariantHeuristic  Variant = "heuristic"
	VariantDegraded   Variant = "degraded"
)

const maxKeyPoints = 5

// Fields are the AI-derived parts of an enrichment.
type Fields struct {
	Summary   string
	KeyPoints []string
	Tags      []string
	Sentiment domain.Sentiment
}

// Parsed is a tagged parse result. Fields always holds usable values; for
// VariantDegraded they are the defaults.
type Parsed struct {
	Variant Variant
	Fields  Fields
}

func degraded() Parsed {
	return Parsed{Variant: VariantDegraded, Fields: Fields{Sentiment: domain.SentimentNeutral}}
}

// payload fields are decoded leniently: a field of the wrong type is
// dropped instead of rejecting the whole reply.
type payload struct {
	Summary   json.RawMessage `json:"summary"`
	KeyPoints json.RawMessage `json:"keyPoints"`
	Tags      json.RawMessage `json:"tags"`
	Sentiment json.RawMessage `json:"sentiment"`
}

// Parse turns a model reply into enrichment fields: any JSON object carrying
// at least one known field first, then line scanning, then defaults. It never
// panics.
func Parse(reply string) (p Parsed) {
	defer func() {
		if recover() != nil {
			p = degraded()
		}
	}()

	if strings.TrimSpace(reply) == "" {
		return degraded()
	}

	if fields, ok := parseStructured(reply); ok {
		return Parsed{Variant: VariantStructured, Fields: fields}
	}

	if fields, ok := parseHeuristic(reply); ok {
		return Parsed{Variant: VariantHeuristic, Fields: fields}
	}

	return degraded()
}

func parseStructured(reply string) (Fields, bool) {
	var pl payload
	if err := enrichmentSchema.Decode(reply, &pl); err != nil {
		return Fields{}, false
	}

	keyPoints := stringItems(pl.KeyPoints)
	if s := stringValue(pl.KeyPoints); s != "" {
		keyPoints = []string{s}
	}

	return Fields{
		Summary:   strings.TrimSpace(stringValue(pl.Summary)),
		KeyPoints: cleanList(keyPoints, maxKeyPoints),
		Tags:      decodeTags(pl.Tags),
		Sentiment: domain.ParseSentiment(stringValue(pl.Sentiment)),
	}, true
}

// decodeTags accepts a comma-separated string or a list of strings.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	if s := stringValue(raw); s != "" {
		return splitTags(s)
	}

	return cleanList(stringItems(raw), 0)
}

// stringValue returns raw as a string, or "" when it is not a JSON string.
func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}

	return s
}

// stringItems returns the string elements of a JSON array, skipping others.
func stringItems(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}

	return out
}

var (
	bulletPattern    = regexp.MustCompile(`^\s*(?:[-*•·]|\d+[.)])\s+(.+)$`)
	tagsLinePattern  = regexp.MustCompile(`(?im)^[\s*#_"-]*tags?[\s*_"]*[:=]\s*(.+)$`)
	sentimentPattern = regexp.MustCompile(`(?i)sentiment[\s*_"]*[:=]?\s*"?\b(positive|negative|neutral)\b`)
	labelPattern     = regexp.MustCompile(`(?i)^[\s*#_"-]*(summary|tags?|sentiment|key\s*points?)[\s*_"]*[:=]`)
	summaryLabel     = regexp.MustCompile(`(?i)summary[\s*_"]*[:=]\s*(.*)$`)
	jsonSummaryField = regexp.MustCompile(`"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// parseHeuristic scans free text for labelled lines and bullets.
func parseHeuristic(reply string) (Fields, bool) {
	fields := Fields{Sentiment: domain.SentimentNeutral}
	found := false

	lines := strings.Split(reply, "\n")

	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "summary") {
			continue
		}

		summary := ""
		if m := jsonSummaryField.FindStringSubmatch(line); m != nil {
			summary = unquoteJSON(m[1])
		} else if m := summaryLabel.FindStringSubmatch(line); m != nil {
			summary = strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), `"*_,`))
		}

		if summary == "" {
			summary = nextContentLine(lines[i+1:])
		}

		if summary != "" {
			fields.Summary = summary
			found = true
		}

		break
	}

	for _, line := range lines {
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			if point := strings.TrimSpace(m[1]); point != "" && !labelPattern.MatchString(point) {
				fields.KeyPoints = append(fields.KeyPoints, point)
			}
		}
	}

	if len(fields.KeyPoints) > maxKeyPoints {
		fields.KeyPoints = fields.KeyPoints[:maxKeyPoints]
	}

	if len(fields.KeyPoints) > 0 {
		found = true
	}

	if m := tagsLinePattern.FindStringSubmatch(reply); m != nil {
		fields.Tags = splitTags(strings.Trim(m[1], "[]"))
		found = found || len(fields.Tags) > 0
	}

	if m := sentimentPattern.FindStringSubmatch(reply); m != nil {
		fields.Sentiment = domain.ParseSentiment(m[1])
		found = true
	}

	return fields, found
}

// unquoteJSON decodes the body of a JSON string literal, keeping it verbatim
// when the escapes are invalid.
func unquoteJSON(body string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &s); err != nil {
		return strings.TrimSpace(body)
	}

	return strings.TrimSpace(s)
}

func nextContentLine(lines []string) string {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}

		if labelPattern.MatchString(l) || bulletPattern.MatchString(l) {
			return ""
		}

		return l
	}

	return ""
}

func splitTags(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}

	return cleanList(parts, 0)
}

// cleanList trims items, drops blanks and truncates to limit when limit > 0.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))

	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}
