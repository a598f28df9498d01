package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the workflow position of a backlog item: the ordinal keeps
// ordering stable even when two workflows reuse a label, the label is the
// state name used for transition lookups.
type Status struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
}

// StatusOf builds the status value naming the given workflow state.
func StatusOf(state State) Status {
	return Status{Ordinal: state.Ordinal, Label: state.Name}
}

// String renders the legacy storage encoding, e.g. "1*To do".
func (s Status) String() string {
	return strconv.Itoa(s.Ordinal) + "*" + s.Label
}

// IsZero reports whether the status has never been assigned.
func (s Status) IsZero() bool {
	return s.Ordinal == 0 && s.Label == ""
}

// ParseStatus decodes the legacy "<ordinal>*<label>" encoding.
func ParseStatus(raw string) (Status, error) {
	ordinal, label, found := strings.Cut(raw, "*")
	if !found {
		return Status{}, fmt.Errorf("malformed status %q: missing separator", raw)
	}

	n, err := strconv.Atoi(ordinal)
	if err != nil {
		return Status{}, fmt.Errorf("malformed status %q: %w", raw, err)
	}

	if n < 1 || label == "" {
		return Status{}, fmt.Errorf("malformed status %q", raw)
	}

	return Status{Ordinal: n, Label: label}, nil
}
