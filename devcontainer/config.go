// Package devcontainer wraps the devcontainer CLI and reads the parts of a
// devcontainer.json that dcx needs.
package devcontainer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindConfig looks for .devcontainer/devcontainer.json, then
// .devcontainer.json, inside workspace.
func FindConfig(workspace string) (string, bool) {
	for _, p := range []string{
		filepath.Join(workspace, ".devcontainer", "devcontainer.json"),
		filepath.Join(workspace, ".devcontainer.json"),
	} {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// StripComments removes // line and /* */ block comments from JSONC text.
// String literals, including escaped quotes inside them, are left intact.
func StripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inString, escaped := false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += 2 + end + 1
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede } or ], which JSONC
// allows and encoding/json does not. Input must already be comment free.
func stripTrailingCommas(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inString, escaped := false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(src) && strings.IndexByte(" \t\r\n", src[j]) >= 0 {
				j++
			}
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ExtractImage returns the top-level "image" string of a JSONC document.
func ExtractImage(src string) (string, bool) {
	s := StripComments(src)
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '"':
			str, end, ok := readString(s, i)
			if !ok {
				return "", false
			}
			i = end
			if depth != 1 || str != "image" {
				continue
			}
			j := skipSpace(s, end+1)
			if j >= len(s) || s[j] != ':' {
				continue
			}
			j = skipSpace(s, j+1)
			if j >= len(s) || s[j] != '"' {
				return "", false
			}
			val, _, ok := readString(s, j)
			return val, ok
		}
	}
	return "", false
}

// readString decodes the JSON string starting at s[start] == '"' and returns
// it with the index of its closing quote.
func readString(s string, start int) (string, int, bool) {
	escaped := false
	for i := start + 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			var out string
			if err := json.Unmarshal([]byte(s[start:i+1]), &out); err != nil {
				return "", i, false
			}
			return out, i, true
		}
	}
	return "", len(s), false
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
		i++
	}
	return i
}

// ReadImage reads path and extracts its top-level image. A missing file or
// field yields ok == false.
func ReadImage(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return ExtractImage(string(data))
}

// Config is the subset of devcontainer.json used to prebuild a base image.
type Config struct {
	Image string       `json:"image,omitempty"`
	Build *BuildConfig `json:"build,omitempty"`
}

// BuildConfig is the "build" section.
type BuildConfig struct {
	Dockerfile string            `json:"dockerfile,omitempty"`
	Context    string            `json:"context,omitempty"`
	Args       map[string]string `json:"args,omitempty"`
}

func parseObject(src string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripTrailingCommas(StripComments(src))), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// LoadConfig parses the image and build sections of the file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal([]byte(stripTrailingCommas(StripComments(string(data)))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// NeedsPrebuild reports whether the config builds from a Dockerfile rather
// than naming an image.
func (c *Config) NeedsPrebuild() bool {
	return c.Image == "" && c.Build != nil && c.Build.Dockerfile != ""
}

// ContentTag returns dcx-base:<first 8 hex of sha256(config bytes)>.
func ContentTag(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "dcx-base:" + hex.EncodeToString(sum[:])[:8], nil
}

// ExpandLocalEnv replaces ${localEnv:VAR} and ${localEnv:VAR:default}
// with lookup(VAR), falling back to default. An unterminated reference is
// copied verbatim.
func ExpandLocalEnv(value string, lookup func(string) (string, bool)) string {
	const open = "${localEnv:"
	var b strings.Builder
	rest := value
	for {
		start := strings.Index(rest, open)
		if start < 0 {
			break
		}
		b.WriteString(rest[:start])
		inner := rest[start+len(open):]
		end := strings.IndexByte(inner, '}')
		if end < 0 {
			b.WriteString(open)
			rest = inner
			continue
		}
		name, def, _ := strings.Cut(inner[:end], ":")
		if v, ok := lookup(name); ok {
			b.WriteString(v)
		} else {
			b.WriteString(def)
		}
		rest = inner[end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// BuildArgs returns the config's build.args with localEnv references expanded.
func (c *Config) BuildArgs(lookup func(string) (string, bool)) map[string]string {
	if c.Build == nil || len(c.Build.Args) == 0 {
		return nil
	}
	ret := make(map[string]string, len(c.Build.Args))
	for k, v := range c.Build.Args {
		ret[k] = ExpandLocalEnv(v, lookup)
	}
	return ret
}

// BuildPaths resolves the Dockerfile and build context relative to the
// directory holding configPath.
func (c *Config) BuildPaths(configPath string) (dockerfile, contextDir string) {
	dir := filepath.Dir(configPath)
	if c.Build == nil {
		return "", dir
	}
	dockerfile = c.Build.Dockerfile
	if dockerfile != "" && !filepath.IsAbs(dockerfile) {
		dockerfile = filepath.Join(dir, dockerfile)
	}
	contextDir = dir
	if c.Build.Context != "" {
		contextDir = c.Build.Context
		if !filepath.IsAbs(contextDir) {
			contextDir = filepath.Join(dir, contextDir)
		}
	}
	return dockerfile, contextDir
}

// TempConfig is a rewritten devcontainer.json living in its own temp dir.
type TempConfig struct {
	dir string
}

// Path is the file to hand to --config. The CLI insists on the file name
// devcontainer.json.
func (t *TempConfig) Path() string {
	return filepath.Join(t.dir, "devcontainer.json")
}

// Close removes the temp dir.
func (t *TempConfig) Close() error {
	return os.RemoveAll(t.dir)
}

// WriteTempConfigWithImage copies the config at path into a fresh temp dir
// with "build" removed and "image" set to image. Callers must Close it.
func WriteTempConfigWithImage(path, image string) (*TempConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	obj, err := parseObject(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if obj == nil {
		return nil, errors.New("failed to parse config: not an object")
	}
	delete(obj, "build")
	img, err := json.Marshal(image)
	if err != nil {
		return nil, err
	}
	obj["image"] = img
	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}

	dir, err := os.MkdirTemp("", "dcx-config-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	tc := &TempConfig{dir: dir}
	if err := os.WriteFile(tc.Path(), out, 0o644); err != nil {
		tc.Close()
		return nil, fmt.Errorf("failed to write temp config: %w", err)
	}
	return tc, nil
}
