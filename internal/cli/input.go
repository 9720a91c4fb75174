package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// maxLineSize bounds a single JSON line of input
const maxLineSize = 16 * 1024 * 1024

// readRowsFrom reads rows from a file, or stdin for "-"
func readRowsFrom(path string) ([]types.Row, error) {
	if path == "-" {
		return readRows(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return readRows(f)
}

// checkPiped fails when f is a terminal rather than a pipe or file
func checkPiped(f *os.File) error {
	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return fmt.Errorf("no rows provided. Usage: vecdb add <table> rows.jsonl")
	}
	return nil
}

// readRows decodes a JSON array of objects or JSON lines
func readRows(r io.Reader) ([]types.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no rows provided")
	}

	if data[0] == '[' {
		var rows []types.Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("invalid JSON rows: %w", err)
		}
		return rows, nil
	}

	var rows []types.Row
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var row types.Row
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

// parseParams turns key=value pairs into provider params. Values are typed
// as int, float, bool or JSON where they parse as such, else kept as text.
func parseParams(pairs []string) (embeddings.Params, error) {
	params := embeddings.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		params[key] = parseValue(strings.TrimSpace(value))
	}
	return params, nil
}

func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if strings.HasPrefix(s, "[") {
		var v []any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// parseVector parses a comma-separated list of floats
func parseVector(s string) ([]float32, error) {
	parts := strings.Split(strings.Trim(s, "[] "), ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector value %q", p)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}

// truncate shortens s for single-line display
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatValue renders a row value for terminal output
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case []float32:
		return fmt.Sprintf("<%d dims>", len(x))
	case string:
		return truncate(x, 80)
	default:
		return fmt.Sprint(x)
	}
}
