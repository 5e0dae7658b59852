// Package query decodes query strings and urlencoded bodies into nested parameters.
//
// Brackets in keys build up the structure: `a[]=1&a[]=2` yields a list, `a[b]=1` yields
// a nested map, and both may be combined, e.g. `users[][name]=x`. A plain key occurring
// more than once keeps the last value.
package query

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEncoding = errors.New("invalid percent-encoding")
	ErrInvalidKey      = errors.New("malformed parameter key")
)

// Params is a decoded set of parameters. Values are either string, []any or Params.
type Params = map[string]any

// Decode parses the raw query string into params.
func Decode(raw string) (Params, error) {
	params := make(Params)
	return params, DecodeInto(params, raw)
}

// DecodeInto parses the raw query string into existing params, overriding clashing keys.
func DecodeInto(params Params, raw string) error {
	for len(raw) > 0 {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if len(pair) == 0 {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(pair, "=")
		if len(rawKey) == 0 {
			continue
		}

		key, err := unescapeString(rawKey)
		if err != nil {
			return err
		}

		value, err := unescapeString(rawValue)
		if err != nil {
			return err
		}

		path, err := splitKey(key)
		if err != nil {
			return err
		}

		assign(params, path, value)
	}

	return nil
}

func unescapeString(src string) (string, error) {
	decoded, _, err := unescape([]byte(src), nil)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

// splitKey splits `a[b][]` into ["a", "b", ""]. Empty segments denote list appends.
func splitKey(key string) ([]string, error) {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		if open == 0 {
			return nil, ErrInvalidKey
		}

		return []string{key}, nil
	}

	path := []string{key[:open]}
	rest := key[open:]

	for len(rest) > 0 {
		if rest[0] != '[' {
			// trailing garbage after brackets is treated as a part of the last segment,
			// just like `a[b]c` is read as {"a": {"b": ...}} by most decoders.
			break
		}

		closing := strings.IndexByte(rest, ']')
		if closing == -1 {
			return nil, ErrInvalidKey
		}

		path = append(path, rest[1:closing])
		rest = rest[closing+1:]
	}

	return path, nil
}

func assign(params Params, path []string, value string) {
	key := path[0]

	if len(path) == 1 {
		params[key] = value
		return
	}

	if path[1] == "" {
		list, _ := params[key].([]any)
		params[key] = appendToList(list, path[2:], value)
		return
	}

	nested, ok := params[key].(Params)
	if !ok {
		nested = make(Params)
		params[key] = nested
	}

	assign(nested, path[1:], value)
}

func appendToList(list []any, path []string, value string) []any {
	if len(path) == 0 {
		return append(list, value)
	}

	// users[][name]=a&users[][age]=1 builds a single element until a key repeats.
	if n := len(list); n > 0 {
		if last, ok := list[n-1].(Params); ok {
			if _, taken := last[path[0]]; !taken {
				assign(last, path, value)
				return list
			}
		}
	}

	elem := make(Params)
	assign(elem, path, value)
	return append(list, elem)
}
