package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You screen classified ads for a Mercedes-Benz SL (107 series) marketplace.
Given the title and description of an ad, decide whether it belongs on the site.
Accept only ads for 107-series vehicles (R107 roadster, C107 coupe, models such as
280SL, 350SL, 380SL, 450SL, 500SL, 560SL, SLC variants) or parts that fit them.
Respond with a single JSON object and nothing else, using exactly these fields:
{"allow": bool, "reason": string, "category": "vehicle"|"part",
"model_tag": string|null, "variant_tag": "r107"|"c107"|null,
"year_from": int|null, "year_to": int|null,
"price": number|null, "currency": "PLN"|"EUR"|"USD"|null,
"confidence": number between 0 and 1}
model_tag is a short lowercase code like "450sl". Extract price and currency
only when stated in the ad text.`

// Classifier turns free-text ad content into a validated Result
type Classifier struct {
	client Client
}

func NewClassifier(client Client) *Classifier {
	return &Classifier{client: client}
}

// Run asks the model about one item. A failed call or an unparseable
// response is an error; a clean allow=false result is not.
func (c *Classifier) Run(ctx context.Context, title, description string) (*Result, error) {
	user := fmt.Sprintf("TITLE: %s\nDESCRIPTION: %s", title, description)

	text, err := c.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	if err := c.validate(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// validate whitelists enum fields and sanity-checks numerics. Out-of-domain
// optional fields are nulled; an unusable category on an admitted item is an
// error since nothing valid could be persisted.
func (c *Classifier) validate(r *Result) error {
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	if r.Allow && r.Category != CategoryVehicle && r.Category != CategoryPart {
		return fmt.Errorf("model returned invalid category: %q", r.Category)
	}

	if r.VariantTag != nil {
		v := strings.ToLower(strings.TrimSpace(*r.VariantTag))
		if v == VariantR107 || v == VariantC107 {
			r.VariantTag = &v
		} else {
			r.VariantTag = nil
		}
	}

	if r.ModelTag != nil {
		m := strings.ToLower(strings.TrimSpace(*r.ModelTag))
		if m == "" {
			r.ModelTag = nil
		} else {
			r.ModelTag = &m
		}
	}

	if r.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*r.Currency))
		switch cur {
		case "PLN", "EUR", "USD":
			r.Currency = &cur
		default:
			r.Currency = nil
		}
	}

	if r.Price != nil && *r.Price < 0 {
		r.Price = nil
	}

	if r.YearFrom != nil && (*r.YearFrom < 1950 || *r.YearFrom > 2035) {
		r.YearFrom = nil
	}
	if r.YearTo != nil && (*r.YearTo < 1950 || *r.YearTo > 2035) {
		r.YearTo = nil
	}
	if r.YearFrom != nil && r.YearTo != nil && *r.YearFrom > *r.YearTo {
		r.YearFrom = nil
		r.YearTo = nil
	}

	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}

	return nil
}

// ExtractJSON locates the first balanced {...} span in text that parses as a
// JSON object. Models occasionally wrap the object in prose or code fences.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false

		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text)
				}
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start = start + 1 + next
	}

	return "", false
}
