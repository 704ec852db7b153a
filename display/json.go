package display

import (
	"encoding/json"

	"github.com/teranos/forge/errors"
)

// MarshalJSON marshals with indentation for terminals and log scrapers alike.
func MarshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal JSON")
	}
	return data, nil
}
