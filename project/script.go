package project

import (
	"encoding/json"
	"fmt"
	"os"
)

// ScriptEntry schedules one program for a number of seconds. Duration is a
// multiplier on the base interval option until ResolveScript scales it.
type ScriptEntry struct {
	ProgramName  string
	ProgramIndex int
	Duration     float64
}

type scriptObject struct {
	Program  string   `json:"program"`
	Duration *float64 `json:"duration"`
}

// LoadScript reads a playback script: a JSON array whose entries are either a
// bare program name or {"program": ..., "duration": ...}. Entries of any
// other shape are skipped.
func LoadScript(path string) ([]ScriptEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open '%s': %w", path, err)
	}
	return ParseScript(data)
}

// ParseScript parses script JSON. An empty result is an error.
func ParseScript(data []byte) ([]ScriptEntry, error) {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("cannot parse script: %w", err)
	}

	var script []ScriptEntry
	for _, node := range nodes {
		entry := ScriptEntry{ProgramIndex: -1, Duration: 1}

		var name string
		if err := json.Unmarshal(node, &name); err == nil {
			entry.ProgramName = name
		} else {
			var obj scriptObject
			if err := json.Unmarshal(node, &obj); err != nil || obj.Program == "" {
				continue
			}
			entry.ProgramName = obj.Program
			if obj.Duration != nil {
				entry.Duration = *obj.Duration
			}
		}

		script = append(script, entry)
	}

	if len(script) == 0 {
		return nil, fmt.Errorf("didn't find any valid entries in the script")
	}
	return script, nil
}
