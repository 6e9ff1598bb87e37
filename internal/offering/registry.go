// Package offering is the seller runtime's offering registry: it discovers
// offering directories on disk, parses their configs, and resolves a
// logical offering name to the compiled-in Handlers implementation that
// backs it.
//
// Handler code is registered as in-process functions into a name-keyed
// map at startup (see cmd/acp-seller/main.go's Register calls) rather
// than dynamically loaded from disk: Go has no safe runtime code-loading
// equivalent to a filesystem require(), so offering.json
// configs are discovered dynamically from disk, but the Handlers
// implementation behind each config.Name is a compile-time registration.
package offering

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourorg/acp-seller/internal/domain"
	"gopkg.in/yaml.v3"
)

// Constructor builds a fresh Handlers implementation for one offering.
// Registered at compile time by the process embedding this package (see
// cmd/acp-seller/main.go's Register calls).
type Constructor func(config domain.OfferingConfig) domain.Handlers

// Registry discovers offering.json/offering.yaml configs under Root and
// resolves them against a name-keyed Constructor map.
type Registry struct {
	Root         string
	constructors map[string]Constructor
}

// New creates a Registry rooted at dir. Call Register for every compiled-in
// offering before calling LoadOffering or LoadAll.
func New(dir string) *Registry {
	return &Registry{Root: dir, constructors: make(map[string]Constructor)}
}

// Register associates an offering's logical name with the constructor that
// builds its Handlers implementation.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// ListOfferings enumerates the immediate subdirectories of Root.
func (r *Registry) ListOfferings() ([]string, error) {
	entries, err := os.ReadDir(r.Root)
	if err != nil {
		return nil, fmt.Errorf("read offerings root %s: %w", r.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// LoadOffering resolves name to its config and Handlers implementation.
//
// Resolution order: a direct subdirectory match on name first; otherwise
// every subdirectory's config is parsed and matched against config.Name.
// The config is always loaded from disk even on a direct directory-name
// match (the directory name and the config's declared name may differ).
func (r *Registry) LoadOffering(name string) (domain.OfferingConfig, domain.Handlers, error) {
	dirs, err := r.ListOfferings()
	if err != nil {
		return domain.OfferingConfig{}, nil, err
	}

	var dir string
	if contains(dirs, name) {
		dir = filepath.Join(r.Root, name)
		if cfg, ok := tryLoadConfig(dir); ok && cfg.Name != "" && cfg.Name != name {
			// Directory name matched, but the config inside declares a
			// different logical name — fall through to the config-name
			// scan below so the declared name wins.
			dir = ""
		}
	}

	if dir == "" {
		for _, d := range dirs {
			candidate := filepath.Join(r.Root, d)
			cfg, ok := tryLoadConfig(candidate)
			if ok && cfg.Name == name {
				dir = candidate
				break
			}
		}
	}

	if dir == "" {
		return domain.OfferingConfig{}, nil, fmt.Errorf("offering not found: %q", name)
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return domain.OfferingConfig{}, nil, fmt.Errorf("load config for %q: %w", name, err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}

	ctor, ok := r.constructors[cfg.Name]
	if !ok {
		return domain.OfferingConfig{}, nil, fmt.Errorf("no handlers registered for offering %q", cfg.Name)
	}
	handlers := ctor(cfg)
	if handlers == nil {
		return domain.OfferingConfig{}, nil, fmt.Errorf("offering %q: constructor returned nil handlers", cfg.Name)
	}
	return cfg, handlers, nil
}

// LoadAll attempts to load every discovered offering, returning the configs
// that succeeded and logging nothing itself — callers (the supervisor) log
// a warning, since a bad offering should be skipped, not
// fatal to startup.
func (r *Registry) LoadAll() (loaded []domain.OfferingConfig, failures map[string]error) {
	dirs, err := r.ListOfferings()
	if err != nil {
		return nil, map[string]error{"*": err}
	}
	failures = make(map[string]error)
	for _, d := range dirs {
		cfg, ok := tryLoadConfig(filepath.Join(r.Root, d))
		if !ok {
			failures[d] = fmt.Errorf("missing or invalid config in %s", d)
			continue
		}
		name := cfg.Name
		if name == "" {
			name = d
		}
		if _, _, err := r.LoadOffering(name); err != nil {
			failures[name] = err
			continue
		}
		loaded = append(loaded, cfg)
	}
	return loaded, failures
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func tryLoadConfig(dir string) (domain.OfferingConfig, bool) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return domain.OfferingConfig{}, false
	}
	return cfg, true
}

type configFile struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description" yaml:"description"`
	JobFee        float64        `json:"jobFee" yaml:"jobFee"`
	JobFeeType    string         `json:"jobFeeType" yaml:"jobFeeType"`
	RequiredFunds bool           `json:"requiredFunds" yaml:"requiredFunds"`
	Extra         map[string]any `json:"-" yaml:"-"`
}

// loadConfig reads offering.json (preferred) or offering.yaml/offering.yml
// from dir, tolerating unknown extension fields by capturing them into
// Extra via a second untyped decode pass.
func loadConfig(dir string) (domain.OfferingConfig, error) {
	jsonPath := filepath.Join(dir, "offering.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		return decodeConfig(data, json.Unmarshal)
	}

	for _, name := range []string{"offering.yaml", "offering.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return decodeConfig(data, yamlToJSONCompatible)
	}

	return domain.OfferingConfig{}, fmt.Errorf("no offering.json or offering.yaml in %s", dir)
}

func decodeConfig(data []byte, unmarshal func([]byte, any) error) (domain.OfferingConfig, error) {
	var cf configFile
	if err := unmarshal(data, &cf); err != nil {
		return domain.OfferingConfig{}, err
	}

	var extra map[string]any
	if err := unmarshal(data, &extra); err == nil {
		for _, known := range []string{"name", "description", "jobFee", "jobFeeType", "requiredFunds"} {
			delete(extra, known)
		}
	}

	return domain.OfferingConfig{
		Name:          strings.TrimSpace(cf.Name),
		Description:   cf.Description,
		JobFee:        cf.JobFee,
		JobFeeType:    cf.JobFeeType,
		RequiredFunds: cf.RequiredFunds,
		Extra:         extra,
	}, nil
}

// yamlToJSONCompatible adapts yaml.Unmarshal to the (data []byte, v any)
// error signature shared with json.Unmarshal.
func yamlToJSONCompatible(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
