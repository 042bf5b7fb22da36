package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Argument helpers. Hosts differ in how they encode numbers (float64,
// json.Number, numeric strings) and some send objects and arrays as JSON
// strings, so every accessor accepts those forms.

func argValue(req mcp.CallToolRequest, key string) (any, bool) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case float32:
		return toInt(float64(n))
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// requireInt returns a positive integer argument. Zero counts as missing.
func requireInt(req mcp.CallToolRequest, key string) (int, error) {
	v, ok := argValue(req, key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s is required", key)
	}
	return n, nil
}

func optionalInt(req mcp.CallToolRequest, key string, def int) (int, error) {
	v, ok := argValue(req, key)
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// idString renders a numeric ID or a string identifier ("my-project", "me").
func idString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	default:
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	}
}

// requireID returns an ID argument that may also be a string identifier.
func requireID(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := argValue(req, key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	id, err := idString(v)
	if err != nil {
		return "", fmt.Errorf("%s must be an ID or identifier: %w", key, err)
	}
	if id == "" || id == "0" {
		return "", fmt.Errorf("%s is required", key)
	}
	return id, nil
}

func optionalID(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := argValue(req, key)
	if !ok {
		return "", nil
	}
	id, err := idString(v)
	if err != nil {
		return "", fmt.Errorf("%s must be an ID or identifier: %w", key, err)
	}
	return id, nil
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	s := strings.TrimSpace(req.GetString(key, ""))
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// requireContent is requireString for document bodies: blank values are
// rejected but the value is returned exactly as sent.
func requireContent(req mcp.CallToolRequest, key string) (string, error) {
	s := req.GetString(key, "")
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func getMapArg(req mcp.CallToolRequest, key string) map[string]any {
	args := req.GetArguments()
	if v, ok := args[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
		if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
			var m map[string]any
			if err := json.Unmarshal([]byte(s), &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func requireObject(req mcp.CallToolRequest, key string) (map[string]any, error) {
	m := getMapArg(req, key)
	if len(m) == 0 {
		return nil, fmt.Errorf("%s is required and must be an object", key)
	}
	return m, nil
}

func getArrayArg(req mcp.CallToolRequest, key string) []any {
	args := req.GetArguments()
	if v, ok := args[key]; ok {
		if arr, ok := v.([]any); ok {
			return arr
		}
		if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
	}
	return nil
}

func intList(req mcp.CallToolRequest, key string) ([]int, error) {
	raw := getArrayArg(req, key)
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("%s must contain integers: %w", key, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// stringList accepts ["a","b"] or "a,b".
func stringList(req mcp.CallToolRequest, key string) []string {
	if arr := getArrayArg(req, key); arr != nil {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	s := req.GetString(key, "")
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pick copies the listed arguments that are present into a new map.
func pick(req mcp.CallToolRequest, keys ...string) map[string]any {
	args := req.GetArguments()
	out := make(map[string]any)
	for _, k := range keys {
		if v, ok := args[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

func listOptions(req mcp.CallToolRequest) (limit, offset int, err error) {
	if limit, err = optionalInt(req, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = optionalInt(req, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// requireFields checks that obj (the argument named objName) carries every
// key with a non-empty value.
func requireFields(obj map[string]any, objName string, keys ...string) error {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil:
			return fmt.Errorf("%s is required inside '%s' object", k, objName)
		case string:
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s is required inside '%s' object", k, objName)
			}
		case float64:
			if v == 0 {
				return fmt.Errorf("%s is required inside '%s' object", k, objName)
			}
		}
	}
	return nil
}
