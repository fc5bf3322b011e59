package playback

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Diff lists the JSON fields of b whose values differ from a.
func Diff(a, b *State) (map[string]json.RawMessage, error) {
	left, err := fields(a)
	if err != nil {
		return nil, err
	}
	right, err := fields(b)
	if err != nil {
		return nil, err
	}

	diff := make(map[string]json.RawMessage)
	for key, value := range right {
		if !bytes.Equal(left[key], value) {
			diff[key] = value
		}
	}
	return diff, nil
}

// ApplyDiff overwrites exactly the fields named in diff.
func ApplyDiff(s *State, diff map[string]json.RawMessage) error {
	current, err := fields(s)
	if err != nil {
		return err
	}
	for key, value := range diff {
		if _, ok := current[key]; !ok {
			return fmt.Errorf("apply diff: unknown field %q", key)
		}
		current[key] = value
	}

	data, err := json.Marshal(current)
	if err != nil {
		return err
	}

	rng := s.rng
	next := State{}
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("apply diff: %w", err)
	}
	next.rng = rng
	*s = next
	return nil
}

func fields(s *State) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
