// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"

	diff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// DiffWriter prints the changes between two successive values of a key and
// reports whether there were any. Objects and arrays are compared structurally;
// anything else is compared by its JSON form.
func DiffWriter(w io.Writer, before, after any) (bool, error) {
	left, err := normalize(before)
	if err != nil {
		return false, err
	}
	right, err := normalize(after)
	if err != nil {
		return false, err
	}

	var d diff.Diff
	differ := diff.New()
	switch l := left.(type) {
	case map[string]interface{}:
		if r, ok := right.(map[string]interface{}); ok {
			d = differ.CompareObjects(l, r)
		}
	case []interface{}:
		if r, ok := right.([]interface{}); ok {
			d = differ.CompareArrays(l, r)
		}
	}

	if d == nil {
		lb, _ := json.Marshal(left)
		rb, _ := json.Marshal(right)
		if string(lb) == string(rb) {
			return false, nil
		}
		_, err := fmt.Fprintf(w, "-%s\n+%s\n", lb, rb)
		return true, err
	}

	if !d.Modified() {
		return false, nil
	}
	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, err := f.Format(d)
	if err != nil {
		return true, fmt.Errorf("failed to format diff: %w", err)
	}
	_, err = io.WriteString(w, out)
	return true, err
}

// normalize round-trips v through JSON so that structs, typed maps and JSON
// text all compare as generic objects.
func normalize(v any) (any, error) {
	raw, isJSON, err := toJSON(v)
	if err != nil {
		return nil, err
	}
	if !isJSON {
		return raw, nil
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
