// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarkerFile is the file that identifies a skill directory.
const MarkerFile = "SKILL.md"

// maxFrontmatterSize limits frontmatter to prevent YAML parsing attacks.
const maxFrontmatterSize = 64 * 1024

var (
	// ErrNoFrontmatter is returned when SKILL.md does not open with a --- block.
	ErrNoFrontmatter = errors.New("missing front-matter block")
	// ErrMissingField is returned when name or description is absent.
	ErrMissingField = errors.New("front-matter is missing a required field")
)

var frontmatterRe = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---`)

// Metadata is the decoded SKILL.md front matter.
type Metadata struct {
	Name          string            `yaml:"name" json:"name"`
	Description   string            `yaml:"description" json:"description"`
	Version       string            `yaml:"version,omitempty" json:"version,omitempty"`
	AllowedTools  stringOrSlice     `yaml:"allowed-tools,omitempty" json:"allowedTools,omitempty"`
	License       string            `yaml:"license,omitempty" json:"license,omitempty"`
	Compatibility string            `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// stringOrSlice handles YAML fields that can be either a space/comma-delimited
// string or a YAML list.
type stringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *stringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		str := value.Value
		if str == "" {
			*s = nil
			return nil
		}
		var parts []string
		if strings.Contains(str, ",") {
			parts = strings.Split(str, ",")
		} else {
			parts = strings.Fields(str)
		}
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*s = result
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("decoding allowed-tools array: %w", err)
		}
		*s = arr
		return nil
	case yaml.DocumentNode, yaml.MappingNode, yaml.AliasNode:
		return fmt.Errorf("allowed-tools: expected string or array, got unsupported YAML node type")
	}
	return fmt.Errorf("allowed-tools: unexpected YAML node kind %d", value.Kind)
}

// Parse extracts and validates the front matter of a SKILL.md document.
func Parse(content []byte) (*Metadata, error) {
	m := frontmatterRe.FindSubmatch(content)
	if m == nil {
		return nil, ErrNoFrontmatter
	}
	block := m[1]
	if len(block) > maxFrontmatterSize {
		return nil, fmt.Errorf("front-matter exceeds maximum size of %d bytes", maxFrontmatterSize)
	}

	var meta Metadata
	yamlErr := yaml.Unmarshal(block, &meta)
	if yamlErr != nil {
		kv, ok := parseKeyValueLines(string(block))
		if !ok {
			return nil, fmt.Errorf("parsing front-matter YAML: %w", yamlErr)
		}
		meta = kv
	}

	meta.Name = strings.TrimSpace(meta.Name)
	meta.Description = strings.TrimSpace(meta.Description)
	if meta.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if meta.Description == "" {
		return nil, fmt.Errorf("%w: description", ErrMissingField)
	}
	return &meta, nil
}

// ParseFile reads and parses a SKILL.md from disk.
func ParseFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- caller-provided skill path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	meta, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// Body returns the markdown after the front-matter block.
func Body(content []byte) string {
	loc := frontmatterRe.FindIndex(content)
	if loc == nil {
		return string(content)
	}
	return strings.TrimLeft(string(content[loc[1]:]), "\r\n")
}

// parseKeyValueLines accepts "key: value" lines, splitting on the first colon.
func parseKeyValueLines(src string) (Metadata, bool) {
	var meta Metadata
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch strings.TrimSpace(key) {
		case "name":
			if meta.Name == "" {
				meta.Name = value
			}
		case "description":
			if meta.Description == "" {
				meta.Description = value
			}
		}
	}
	return meta, meta.Name != "" && meta.Description != ""
}
