package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnresolvedPlaceholders is returned by Check when strict mode is on and the
// resolved config still carries tokens.
var ErrUnresolvedPlaceholders = errors.New("unresolved config placeholders")

// Unresolved describes a token left verbatim in the resolved config.
type Unresolved struct {
	Token string
	// Paths are the JSON paths of string values that still contain the token.
	// Empty when the document is not valid JSON.
	Paths []string
}

// Result reports what Materialize did.
type Result struct {
	Skipped    bool
	Replaced   []string
	Unresolved []Unresolved
}

// Materialize resolves the template at templatePath into outputPath.
// Every token with a non-empty value is replaced everywhere it occurs; tokens
// without a value are left in place. A missing template is a no-op.
func Materialize(templatePath, outputPath string, values map[string]string) (Result, error) {
	raw, err := os.ReadFile(templatePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{Skipped: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read config template: %w", err)
	}

	resolved, replaced := Resolve(string(raw), values)

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(resolved), 0o600); err != nil {
		return Result{}, fmt.Errorf("failed to write resolved config: %w", err)
	}

	return Result{
		Replaced:   replaced,
		Unresolved: FindUnresolved(string(raw), values),
	}, nil
}

// Resolve substitutes tokens in a single pass, so a value that happens to
// contain another token is never substituted again. Longer tokens win when
// two tokens share a prefix.
func Resolve(template string, values map[string]string) (string, []string) {
	tokens := suppliedTokens(values)
	if len(tokens) == 0 {
		return template, nil
	}

	pairs := make([]string, 0, len(tokens)*2)
	replaced := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		pairs = append(pairs, tok, values[tok])
		if strings.Contains(template, tok) {
			replaced = append(replaced, tok)
		}
	}
	sort.Strings(replaced)

	return strings.NewReplacer(pairs...).Replace(template), replaced
}

// FindUnresolved lists tokens without a value that appear in the template.
// Unresolved tokens are copied verbatim, so their JSON paths are the same in
// the template and the resolved document.
func FindUnresolved(template string, values map[string]string) []Unresolved {
	var out []Unresolved
	for _, p := range Placeholders {
		if values[p.Token] != "" || !strings.Contains(template, p.Token) {
			continue
		}
		out = append(out, Unresolved{Token: p.Token, Paths: jsonPathsContaining(template, p.Token)})
	}
	return out
}

// Check applies the strict policy to a materialization result.
func Check(res Result, strict bool) error {
	if !strict || len(res.Unresolved) == 0 {
		return nil
	}
	names := make([]string, 0, len(res.Unresolved))
	for _, u := range res.Unresolved {
		names = append(names, u.Token)
	}
	return fmt.Errorf("%w: %s", ErrUnresolvedPlaceholders, strings.Join(names, ", "))
}

func suppliedTokens(values map[string]string) []string {
	tokens := make([]string, 0, len(values))
	for tok, val := range values {
		if tok != "" && val != "" {
			tokens = append(tokens, tok)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}

func jsonPathsContaining(doc, token string) []string {
	if !gjson.Valid(doc) {
		return nil
	}
	var paths []string
	walk(gjson.Parse(doc), "", func(path string, v gjson.Result) {
		if v.Type == gjson.String && strings.Contains(v.Str, token) {
			paths = append(paths, path)
		}
	})
	return paths
}

func walk(node gjson.Result, prefix string, visit func(string, gjson.Result)) {
	if !node.IsObject() && !node.IsArray() {
		visit(prefix, node)
		return
	}
	idx := 0
	node.ForEach(func(key, value gjson.Result) bool {
		var seg string
		if node.IsArray() {
			seg = fmt.Sprint(idx)
			idx++
		} else {
			seg = key.String()
		}
		path := seg
		if prefix != "" {
			path = prefix + "." + seg
		}
		walk(value, path, visit)
		return true
	})
}
