// Package inspect looks into buffered response bodies: JSONPath-style value
// extraction and JSON Schema validation.
package inspect

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Static error definitions.
var (
	ErrEmptyBody    = errors.New("empty response body")
	ErrNotJSON      = errors.New("response body is not JSON")
	ErrEmptyPath    = errors.New("empty JSONPath expression")
	ErrPathNotFound = errors.New("path not found")
)

var bracketIndex = regexp.MustCompile(`\[(\d+|\*)\]`)

// Extract returns the value at path in the JSON document content. path is a
// JSONPath-like expression ($.users[0].name) or a native gjson path. Strings are
// returned unquoted, null as "null" and objects or arrays as raw JSON.
func Extract(content []byte, path string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyBody
	}

	if path == "" {
		return "", ErrEmptyPath
	}

	if !gjson.ValidBytes(content) {
		return "", ErrNotJSON
	}

	result := gjson.GetBytes(content, ToGJSONPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	if result.Type == gjson.Null {
		return "null", nil
	}

	return result.String(), nil
}

// ExtractMultiple evaluates every named path. Results hold the values that
// could be extracted; the error lists the others, in name order.
func ExtractMultiple(content []byte, paths map[string]string) (map[string]string, error) {
	results := make(map[string]string, len(paths))

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}

	sort.Strings(names)

	var errs []error
	for _, name := range names {
		value, err := Extract(content, paths[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		results[name] = value
	}

	return results, errors.Join(errs...)
}

// ToGJSONPath converts a JSONPath expression to gjson syntax:
//
//	$.users[0].name  ->  users.0.name
//	$['name']        ->  name
//	$.items[*].id    ->  items.#.id
func ToGJSONPath(path string) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}

	replacer := strings.NewReplacer(`['`, ".", `']`, "", `["`, ".", `"]`, "")
	path = replacer.Replace(path)

	path = bracketIndex.ReplaceAllStringFunc(path, func(m string) string {
		index := m[1 : len(m)-1]
		if index == "*" {
			index = "#"
		}

		return "." + index
	})

	return strings.TrimPrefix(path, ".")
}
