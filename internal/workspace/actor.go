package workspace

import (
	"os"
	"os/exec"
	"strings"
)

// ActorEnv names the environment variable consulted by ResolveActor.
const ActorEnv = "MENTU_ACTOR"

// DefaultActor is the identity used when nothing else is configured.
const DefaultActor = "user"

// gitEmail is replaced in tests.
var gitEmail = func() string {
	out, err := exec.Command("git", "config", "user.email").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// ResolveActor picks the acting identity: the explicit flag value, then
// MENTU_ACTOR, then the configured default_actor, then git's user.email,
// then "user".
func ResolveActor(flag string, cfg *Config) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(ActorEnv); env != "" {
		return env
	}
	if cfg != nil && cfg.DefaultActor != "" {
		return cfg.DefaultActor
	}
	if email := gitEmail(); email != "" {
		return email
	}
	return DefaultActor
}
