package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// readJSONArg resolves a flag value that is either a literal JSON string or,
// when prefixed with "@", a path to a file containing JSON ("@-" reads
// stdin). Empty input (no flag given) decodes as nil.
func readJSONArg(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	payload, err := resolveJSONBytes(raw)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return value, nil
}

func resolveJSONBytes(raw string) ([]byte, error) {
	if !strings.HasPrefix(raw, "@") {
		return []byte(raw), nil
	}

	path := strings.TrimPrefix(raw, "@")
	if path == "-" {
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return payload, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return payload, nil
}
