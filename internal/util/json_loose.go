package util

import (
	"bytes"
	"encoding/json"
	"strings"
)

// LooseString accepts a JSON string, number or null.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	*s = LooseString(string(b))
	return nil
}

// LooseList accepts a JSON array of strings or a single string.
type LooseList []string

func (l *LooseList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []LooseString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if v := strings.TrimSpace(string(it)); v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}
	var one LooseString
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if v := strings.TrimSpace(string(one)); v != "" {
		*l = []string{v}
	}
	return nil
}
