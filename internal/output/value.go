// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// ValueWriter prints a cached value. Strings that are not JSON are printed
// verbatim; everything else is printed as indented JSON. A non-empty path
// selects part of the value using gjson syntax.
func ValueWriter(w io.Writer, value any, path string) error {
	raw, isJSON, err := toJSON(value)
	if err != nil {
		return err
	}

	if path == "" {
		if !isJSON {
			_, err := fmt.Fprintln(w, raw)
			return err
		}
		var pretty any
		if err := json.Unmarshal([]byte(raw), &pretty); err != nil {
			return err
		}
		b, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	if !isJSON {
		return fmt.Errorf("cannot select %q from a non-JSON value", path)
	}
	result := gjson.Get(raw, path)
	if !result.Exists() {
		return fmt.Errorf("path %q not found", path)
	}
	_, err = fmt.Fprintln(w, result.String())
	return err
}

// toJSON returns value as JSON text and whether it is JSON at all.
func toJSON(value any) (string, bool, error) {
	switch v := value.(type) {
	case string:
		return v, gjson.Valid(v), nil
	case []byte:
		return string(v), gjson.Valid(string(v)), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", false, fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), true, nil
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}
	if value == nil {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		if value == "" {
			return emptyValue[0]
		}
		return value
	case fmt.Stringer:
		return value.String()
	default:
		raw, _, err := toJSON(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return raw
	}
}
