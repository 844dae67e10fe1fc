package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes the usual defects of model output: unquoted keys,
// single quotes, trailing commas, comments and unclosed brackets.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson and returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(jsonBytes), nil
}

// SmartParse decodes model output into schema. It strips a fenced code
// block, narrows to the outermost JSON value, then tries standard JSON,
// Hjson and finally repaired JSON.
func SmartParse(input string, schema interface{}) (string, error) {
	candidate := OutermostJSON(StripCodeFence(input))
	if candidate == "" {
		return "", fmt.Errorf("SMART_PARSE_FAILED: no JSON value in input")
	}

	if err := json.Unmarshal([]byte(candidate), schema); err == nil {
		return candidate, nil
	}
	// Hjson first: repair accepts quoteless values too but folds the
	// following lines into them.
	if converted, err := ParseHJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(converted), schema); err == nil {
			return converted, nil
		}
	}
	if repaired, err := RepairJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}
	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}

// OutermostJSON returns the span from the first '{' or '[' to the matching
// last '}' or ']'. Text without brackets is returned trimmed.
func OutermostJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		// unclosed; leave it to the repair pass
		return s[start:]
	}
	return s[start : end+1]
}
