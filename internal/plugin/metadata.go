package plugin

import "encoding/json"

// Capability is a named right a plugin may request (spec.md §4.3).
type Capability string

const (
	CapNetwork    Capability = "Network"
	CapFilesystem Capability = "Filesystem"
	CapProcess    Capability = "Process"
)

// Metadata is the JSON document a plugin's init() export returns,
// describing what the module needs to run.
type Metadata struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Capabilities []Capability `json:"capabilities"`
}

func parseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// subsetOf reports whether every capability m declares is present in
// allowed (spec.md §4.3: "capabilities subset of allowed set").
func (m Metadata) subsetOf(allowed map[Capability]bool) bool {
	for _, c := range m.Capabilities {
		if !allowed[c] {
			return false
		}
	}
	return true
}
