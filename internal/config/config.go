package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects the graph backend.
type StoreConfig struct {
	// Backend is one of kuzu, sqlite, badger or mem.
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// LLMConfig points the advisor at a chat completions API. The key is never
// read from the file.
type LLMConfig struct {
	Endpoint   string `yaml:"endpoint,omitempty"`
	Model      string `yaml:"model,omitempty"`
	APIVersion string `yaml:"apiVersion,omitempty"`
}

// ProjectConfig holds project-level settings loaded from cxxgraph.yml.
type ProjectConfig struct {
	RepoRoot string `yaml:"repoRoot,omitempty"`
	// Exclude lists path prefixes (e.g. system headers) never emitted.
	Exclude     []string `yaml:"exclude,omitempty"`
	IncludeDirs []string `yaml:"includeDirs,omitempty"`
	// Defines is a ';' separated list such as "NDEBUG;VERSION=2".
	Defines  string `yaml:"defines,omitempty"`
	Standard string `yaml:"standard,omitempty"`

	Extensions []string `yaml:"extensions,omitempty"`
	Ignore     []string `yaml:"ignore,omitempty"`
	Workers    int      `yaml:"workers,omitempty"`

	SkipLocalDeclarations bool `yaml:"skipLocalDeclarations,omitempty"`
	SkipNodeOnly          bool `yaml:"skipNodeOnly,omitempty"`

	Store StoreConfig `yaml:"store,omitempty"`
	LLM   LLMConfig   `yaml:"llm,omitempty"`
}

// Load attempts to read cxxgraph.yml or cxxgraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"cxxgraph.yml", "cxxgraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// ParserFlags renders the include directories, defines and language
// standard as compiler flags.
func (c *ProjectConfig) ParserFlags() []string {
	var flags []string
	for _, dir := range c.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	for _, d := range strings.Split(c.Defines, ";") {
		if d = strings.TrimSpace(d); d != "" {
			flags = append(flags, "-D"+d)
		}
	}
	if c.Standard != "" {
		flags = append(flags, "-std="+c.Standard)
	}
	return flags
}
