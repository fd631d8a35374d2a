// Package ledger persists the operation sequence as line-delimited JSON.
//
// The ledger file is append-only: Append writes one complete newline-terminated
// record after existing content and never rewrites prior bytes. ReadAll returns
// operations in file order. Callers that append must hold the workspace lock
// (see package lock).
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
)

// Scanner limits for one ledger line.
const (
	initialLineBuffer = 128 * 1024
	maxLineBytes      = 8 * 1024 * 1024
)

// Store reads and appends operations for one ledger file.
type Store struct {
	path string
}

// New returns a Store for the ledger file at path. The file need not exist.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// ReadAll returns every operation in ledger order. A missing ledger is an
// empty sequence. Blank lines are skipped; a malformed line fails with
// E_LEDGER_CORRUPT naming its 1-based line number.
func (s *Store) ReadAll() ([]model.Operation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Operation{}, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses line-delimited operations from r.
func Decode(r io.Reader) ([]model.Operation, error) {
	ops := []model.Operation{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, apperr.Newf(apperr.CodeLedgerCorrupt, "parse ledger line %d: %v", lineNo, err).
				With("line", lineNo)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Newf(apperr.CodeLedgerCorrupt, "read ledger after line %d: %v", lineNo, err).
			With("line", lineNo+1)
	}
	return ops, nil
}

// Append writes op as one line after all existing records, creating the
// ledger file and its directory if absent.
func (s *Store) Append(op model.Operation) error {
	line, err := Encode(op)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	return f.Close()
}

// Encode renders op as a single newline-terminated JSON line.
func Encode(op model.Operation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode operation %s: %w", op.ID, err)
	}
	return append(data, '\n'), nil
}

// IDExists reports whether any operation in ops carries id.
func IDExists(ops []model.Operation, id string) bool {
	for i := range ops {
		if ops[i].ID == id {
			return true
		}
	}
	return false
}

// SourceKeyExists reports whether any operation in ops carries key.
func SourceKeyExists(ops []model.Operation, key string) bool {
	if key == "" {
		return false
	}
	for i := range ops {
		if ops[i].SourceKey == key {
			return true
		}
	}
	return false
}

// MemoryIDs returns the ids of every capture in ledger order.
func MemoryIDs(ops []model.Operation) []string {
	return idsOfKind(ops, model.KindCapture)
}

// CommitmentIDs returns the ids of every commit in ledger order.
func CommitmentIDs(ops []model.Operation) []string {
	return idsOfKind(ops, model.KindCommit)
}

func idsOfKind(ops []model.Operation, k model.Kind) []string {
	var ids []string
	for i := range ops {
		if ops[i].Op == k {
			ids = append(ids, ops[i].ID)
		}
	}
	return ids
}
