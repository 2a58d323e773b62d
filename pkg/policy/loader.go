package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Comment directives recognized in the header of a .rego file.
const (
	directiveSeverity = "severity:"
	directiveTags     = "tags:"
)

// Loader reads policies from .rego and .json files.
type Loader struct {
	logger zerolog.Logger
	cache  map[string]*Policy
	mu     sync.RWMutex
}

// NewLoader returns a loader that caches parsed files by path.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string]*Policy),
	}
}

// LoadFromPaths reads every path in order. A named file must parse; a bad
// file inside a directory is skipped with a warning.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var all []Policy

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		policies, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("policy source %s: %w", path, err)
		}
		all = append(all, policies...)
	}

	l.logger.Debug().Int("policies", len(all)).Strs("sources", paths).Msg("Policy sources read")

	return all, nil
}

func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}

	policy, err := l.loadFromFile(path)
	if err != nil {
		return nil, err
	}

	return []Policy{*policy}, nil
}

// loadFromDirectory walks dirPath for .rego and .json files.
func (l *Loader) loadFromDirectory(ctx context.Context, dirPath string) ([]Policy, error) {
	var policies []Policy

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}

		policy, err := l.loadFromFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable policy file")
			return nil
		}

		policies = append(policies, *policy)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dirPath, err)
	}

	return policies, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rego", ".json":
		return true
	default:
		return false
	}
}

// loadFromFile parses one file, consulting the cache first.
func (l *Loader) loadFromFile(filePath string) (*Policy, error) {
	l.mu.RLock()
	if cached, exists := l.cache[filePath]; exists {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var policy *Policy
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".rego":
		policy, err = parseRegoFile(filePath, data)
	case ".json":
		policy, err = parseJSONFile(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}
	if err != nil {
		return nil, err
	}
	policy.Source = filePath

	l.mu.Lock()
	l.cache[filePath] = policy
	l.mu.Unlock()

	l.logger.Debug().Str("path", filePath).Str("policy", policy.Name).Msg("Policy parsed")

	return policy, nil
}

// parseRegoFile builds a Policy from a .rego file. The name is the file's
// base name; the header comment supplies the description and the optional
// severity and tags directives.
func parseRegoFile(filePath string, data []byte) (*Policy, error) {
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	policy := &Policy{
		Name:     name,
		Rego:     string(data),
		Severity: SeverityWarning,
		Enabled:  true,
		Tags:     []string{},
	}

	var description []string
	for _, comment := range headerComments(string(data)) {
		lower := strings.ToLower(comment)
		switch {
		case strings.HasPrefix(lower, directiveSeverity):
			sev := Severity(strings.TrimSpace(lower[len(directiveSeverity):]))
			if !sev.Valid() {
				return nil, fmt.Errorf("unknown severity %q in %s", sev, filePath)
			}
			policy.Severity = sev
		case strings.HasPrefix(lower, directiveTags):
			for _, tag := range strings.Split(comment[len(directiveTags):], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					policy.Tags = append(policy.Tags, tag)
				}
			}
		default:
			description = append(description, comment)
		}
	}
	policy.Description = strings.Join(description, " ")

	return policy, nil
}

// headerComments returns the non-empty comment lines before the first line
// of code.
func headerComments(content string) []string {
	var comments []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		if comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#")); comment != "" {
			comments = append(comments, comment)
		}
	}
	return comments
}

// policyDocument is the JSON form of a policy. Enabled defaults to true.
type policyDocument struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rego        string   `json:"rego"`
	Severity    Severity `json:"severity"`
	Enabled     *bool    `json:"enabled"`
	Tags        []string `json:"tags"`
}

// parseJSONFile reads a policyDocument. Name and rego are required.
func parseJSONFile(data []byte) (*Policy, error) {
	var doc policyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON policy: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("JSON policy is missing a name")
	}
	if strings.TrimSpace(doc.Rego) == "" {
		return nil, fmt.Errorf("JSON policy %s has no rego", doc.Name)
	}

	policy := &Policy{
		Name:        doc.Name,
		Description: doc.Description,
		Rego:        doc.Rego,
		Severity:    doc.Severity,
		Enabled:     true,
		Tags:        doc.Tags,
	}
	if policy.Severity == "" {
		policy.Severity = SeverityWarning
	}
	if doc.Enabled != nil {
		policy.Enabled = *doc.Enabled
	}
	if policy.Tags == nil {
		policy.Tags = []string{}
	}

	return policy, nil
}

// ClearCache drops every cached policy.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*Policy)
}
