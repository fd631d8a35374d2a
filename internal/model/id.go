package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Id prefixes by entity category.
const (
	PrefixMemory     = "mem"
	PrefixCommitment = "cmt"
	PrefixOperation  = "op"
)

// IDPattern is the grammar every reference id must satisfy.
var IDPattern = regexp.MustCompile(`^(cmt|mem|op)_[a-f0-9]{8}$`)

// TimeFormat is the wire format of operation timestamps (UTC, milliseconds).
const TimeFormat = "2006-01-02T15:04:05.000Z"

// NewID returns prefix_ followed by eight random hex characters.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:8]
}

// IDPrefix maps an operation kind to the prefix of the id it is written under.
func IDPrefix(k Kind) string {
	switch k {
	case KindCapture:
		return PrefixMemory
	case KindCommit:
		return PrefixCommitment
	default:
		return PrefixOperation
	}
}

// PrefixOf returns the category prefix of id, or "" when it has none.
func PrefixOf(id string) string {
	prefix, _, ok := strings.Cut(id, "_")
	if !ok {
		return ""
	}
	return prefix
}

// ValidRef reports whether id matches IDPattern.
func ValidRef(id string) bool {
	return IDPattern.MatchString(id)
}

// Timestamp formats t in the ledger's wire format.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
