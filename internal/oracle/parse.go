package oracle

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
	"github.com/tidwall/gjson"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var ErrMalformedReply = errors.New("oracle reply is not a JSON object")

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas directory: %w", err)
	}

	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(data, rs); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", entry.Name(), err)
		}
		schemas[strings.TrimSuffix(entry.Name(), ".json")] = rs
	}
	return schemas, nil
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object in a model reply.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if parts := strings.Split(s, "```"); len(parts) > 1 {
			s = strings.TrimSpace(parts[1])
		}
		s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", ErrMalformedReply
	}
	doc := s[start : end+1]
	if !gjson.Valid(doc) {
		return "", ErrMalformedReply
	}
	return doc, nil
}

// parseReply extracts the JSON object from raw and validates it against the
// schema registered for kind.
func parseReply(ctx context.Context, schemas map[string]*jsonschema.Schema, kind, raw string) (gjson.Result, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return gjson.Result{}, err
	}

	if rs, ok := schemas[kind]; ok {
		errs, err := rs.ValidateBytes(ctx, []byte(doc))
		if err != nil {
			return gjson.Result{}, fmt.Errorf("validate %s reply: %w", kind, err)
		}
		if len(errs) > 0 {
			return gjson.Result{}, fmt.Errorf("%s reply failed schema: %s %s", kind, errs[0].PropertyPath, errs[0].Message)
		}
	}
	return gjson.Parse(doc), nil
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
