// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"bytes"
	"encoding/gob"
)

// Clone returns a deep copy of the input value through a gob round trip.
func Clone[PT *T, T any](v PT) (PT, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	x := new(T)
	if err := gob.NewDecoder(&buf).Decode(x); err != nil {
		return nil, err
	}
	return x, nil
}
