// Package genesis loads a workspace's policy document (the genesis key) and
// answers two questions about it: may this actor perform this kind of
// operation, and does closing this commitment satisfy the configured
// constraints.
//
// A nil *Key means no policy is configured; every check then passes.
package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mentu/internal/model"
)

// FileName is the policy document's name inside the workspace directory.
const FileName = "genesis.key"

// Key is the parsed policy document.
type Key struct {
	Genesis          Meta         `yaml:"genesis"`
	Identity         Identity     `yaml:"identity"`
	Permissions      *Permissions `yaml:"permissions,omitempty"`
	Constraints      *Constraints `yaml:"constraints,omitempty"`
	Triage           *Triage      `yaml:"triage,omitempty"`
	RequiresApproval []TierRule   `yaml:"requires_approval,omitempty"`
}

// Meta carries the document version.
type Meta struct {
	Version string `yaml:"version"`
	Created string `yaml:"created,omitempty"`
}

// Identity names the workspace the policy governs.
type Identity struct {
	Workspace string `yaml:"workspace"`
	Owner     string `yaml:"owner,omitempty"`
	Name      string `yaml:"name,omitempty"`
}

// Triage configures tier classification.
type Triage struct {
	DefaultTier string     `yaml:"default_tier,omitempty"`
	TierRules   []TierRule `yaml:"tier_rules,omitempty"`
}

// TierRule assigns a tier to work matching a path glob and/or tag and actor
// patterns.
type TierRule struct {
	Pattern string     `yaml:"pattern,omitempty"`
	Match   *TierMatch `yaml:"match,omitempty"`
	Tier    string     `yaml:"tier,omitempty"`
	Reason  string     `yaml:"reason,omitempty"`
}

// TierMatch is the non-path part of a TierRule.
type TierMatch struct {
	Tags  []string `yaml:"tags,omitempty"`
	Actor string   `yaml:"actor,omitempty"`
}

// Parse decodes a policy document.
func Parse(data []byte) (*Key, error) {
	var key Key
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&key); err != nil {
		return nil, fmt.Errorf("parse genesis key: %w", err)
	}
	return &key, nil
}

// Load reads the policy document at path. A missing file yields (nil, nil):
// the workspace simply has no policy.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read genesis key: %w", err)
	}
	return Parse(data)
}

// Template returns a starter policy document for a new workspace. It grants
// every operation to authenticated actors and configures no constraints.
func Template(workspace, owner, created string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "genesis:\n  version: \"1.0\"\n  created: %q\n", created)
	fmt.Fprintf(&buf, "identity:\n  workspace: %q\n  owner: %q\n", workspace, owner)
	buf.WriteString("permissions:\n  defaults:\n    authenticated:\n      operations:\n")
	for _, k := range model.Kinds {
		fmt.Fprintf(&buf, "        - %s\n", k)
	}
	buf.WriteString("triage:\n  default_tier: T2\n")
	return buf.Bytes()
}
