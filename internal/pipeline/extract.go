package pipeline

import (
	"fmt"
	"strings"

	"github.com/novadental/verify-cli/internal/model"
)

// NotFound is the sentinel some clearinghouses put in place of an
// absent value. It is treated the same as an empty string.
const NotFound = "Not Found"

// listStrategy extracts the benefit list from one known payload shape.
// Strategies run in order; the first that finds a list wins.
type listStrategy struct {
	name    string
	extract func(raw map[string]any) ([]model.Benefit, bool)
}

var listStrategies = []listStrategy{
	{name: "benefits", extract: benefitsUnderKey("benefits")},
	{name: "benefitsInformation", extract: benefitsUnderKey("benefitsInformation")},
}

// ExtractBenefits pulls the benefit line items out of a raw eligibility
// payload. A payload with no recognizable list yields an empty slice,
// never an error: a partially-unparseable response must not block the
// rest of the workflow.
func ExtractBenefits(raw map[string]any) []model.Benefit {
	if raw == nil {
		return nil
	}
	for _, s := range listStrategies {
		if benefits, ok := s.extract(raw); ok {
			return benefits
		}
	}
	return nil
}

func benefitsUnderKey(key string) func(map[string]any) ([]model.Benefit, bool) {
	return func(raw map[string]any) ([]model.Benefit, bool) {
		list, ok := raw[key].([]any)
		if !ok {
			return nil, false
		}
		benefits := make([]model.Benefit, 0, len(list))
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			benefits = append(benefits, decodeBenefit(obj))
		}
		return benefits, true
	}
}

// decodeBenefit duck-types one line item. Every field is optional and
// numbers may arrive as JSON numbers or strings.
func decodeBenefit(obj map[string]any) model.Benefit {
	return model.Benefit{
		Code:              stringField(obj, "code", "benefitCode"),
		Name:              stringField(obj, "name", "benefitName", "description"),
		ServiceTypeCodes:  stringListField(obj, "serviceTypeCodes"),
		ServiceTypes:      stringListField(obj, "serviceTypes"),
		CoverageLevelCode: stringField(obj, "coverageLevelCode", "coverageLevel"),
		BenefitAmount:     stringField(obj, "benefitAmount", "amount"),
		BenefitPercent:    stringField(obj, "benefitPercent", "percent"),
		TimeQualifier:     stringField(obj, "timeQualifier", "timeQualifierCode"),
	}
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}

func stringListField(obj map[string]any, key string) []string {
	list, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// benefitValue picks the reportable value off a matched line item:
// dollar amount first, then percent, then the time qualifier for
// frequency-style benefits. Empty or sentinel values yield "", which the
// normalizer treats as no match at all.
func benefitValue(b model.Benefit) string {
	if v := cleanValue(b.BenefitAmount); v != "" {
		if strings.HasPrefix(v, "$") {
			return v
		}
		return "$" + v
	}
	if v := cleanValue(b.BenefitPercent); v != "" {
		if strings.HasSuffix(v, "%") {
			return v
		}
		return v + "%"
	}
	return cleanValue(b.TimeQualifier)
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, NotFound) {
		return ""
	}
	return v
}
