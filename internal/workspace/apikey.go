package workspace

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
)

// API key permissions.
const (
	PermRead  = "read"
	PermWrite = "write"
)

const (
	keySecretPrefix = "mentu_key_"
	keyHashPrefix   = "sha256:"
	keyPrefixLen    = 16
)

// APIKey is a stored API key. Only the hash of the secret is kept.
type APIKey struct {
	ID          string   `yaml:"id" mapstructure:"id" json:"id"`
	Name        string   `yaml:"name" mapstructure:"name" json:"name"`
	KeyHash     string   `yaml:"key_hash" mapstructure:"key_hash" json:"-"`
	KeyPrefix   string   `yaml:"key_prefix" mapstructure:"key_prefix" json:"key_prefix"`
	Actor       string   `yaml:"actor" mapstructure:"actor" json:"actor"`
	Permissions []string `yaml:"permissions" mapstructure:"permissions" json:"permissions"`
	Created     string   `yaml:"created" mapstructure:"created" json:"created"`
}

// Validate validates a stored key.
func (k *APIKey) Validate() error {
	return validation.ValidateStruct(k,
		validation.Field(&k.ID, validation.Required),
		validation.Field(&k.KeyHash, validation.Required),
		validation.Field(&k.Actor, validation.Required),
		validation.Field(&k.Permissions, validation.Each(validation.In(PermRead, PermWrite))),
	)
}

// Can reports whether the key carries perm.
func (k *APIKey) Can(perm string) bool {
	return slices.Contains(k.Permissions, perm)
}

// HashAPIKey returns the stored form of a secret: "sha256:" + hex digest.
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return keyHashPrefix + hex.EncodeToString(sum[:])
}

func newSecret() string {
	a := strings.ReplaceAll(uuid.NewString(), "-", "")
	b := strings.ReplaceAll(uuid.NewString(), "-", "")
	return keySecretPrefix + a + b[:16]
}

// CreateAPIKey generates a key for actor with read and write permission,
// stores its hash in the config file and returns the secret. The secret
// cannot be recovered later.
func (w *Workspace) CreateAPIKey(name, actor string) (string, APIKey, error) {
	if actor == "" {
		return "", APIKey{}, apperr.New(apperr.CodeMissingField, "Missing field: actor").With("field", "actor")
	}
	if name == "" {
		name = "API Key"
	}
	secret := newSecret()
	key := APIKey{
		ID:          model.NewID("key"),
		Name:        name,
		KeyHash:     HashAPIKey(secret),
		KeyPrefix:   secret[:keyPrefixLen],
		Actor:       actor,
		Permissions: []string{PermRead, PermWrite},
		Created:     model.Timestamp(w.now()),
	}
	err := w.updateConfig(func(cfg *Config) error {
		cfg.API.Keys = append(cfg.API.Keys, key)
		return nil
	})
	if err != nil {
		return "", APIKey{}, err
	}
	w.logger.Info("api key created", "id", key.ID, "actor", actor)
	return secret, key, nil
}

// RevokeAPIKey removes the key with id from the config file.
func (w *Workspace) RevokeAPIKey(id string) error {
	err := w.updateConfig(func(cfg *Config) error {
		i := slices.IndexFunc(cfg.API.Keys, func(k APIKey) bool { return k.ID == id })
		if i < 0 {
			return apperr.Newf(apperr.CodeNotFound, "API key %s not found", id).With("id", id)
		}
		cfg.API.Keys = slices.Delete(cfg.API.Keys, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}
	w.logger.Info("api key revoked", "id", id)
	return nil
}

// LookupAPIKey returns the stored key whose hash matches secret.
func (w *Workspace) LookupAPIKey(secret string) (APIKey, bool) {
	return LookupAPIKey(w.Config.API.Keys, secret)
}

// LookupAPIKey finds the key in keys whose hash matches secret.
func LookupAPIKey(keys []APIKey, secret string) (APIKey, bool) {
	hash := HashAPIKey(secret)
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k.KeyHash), []byte(hash)) == 1 {
			return k, true
		}
	}
	return APIKey{}, false
}

// updateConfig rewrites config.yaml under the workspace lock. It edits the
// file contents rather than the loaded config so environment overrides are
// never persisted.
func (w *Workspace) updateConfig(fn func(*Config) error) error {
	return w.Lock().WithLock(func() error {
		cfg, err := readConfigFile(w.ConfigPath())
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		if err := SaveConfig(w.ConfigPath(), cfg); err != nil {
			return err
		}
		w.Config.API = cfg.API
		return nil
	})
}

// APIKeys reads the stored keys from config.yaml. Long-running processes use
// it so keys created or revoked after startup take effect.
func (w *Workspace) APIKeys() ([]APIKey, error) {
	cfg, err := readConfigFile(w.ConfigPath())
	if err != nil {
		return nil, err
	}
	return cfg.API.Keys, nil
}
