// Package storage persists finalized candidate records to a local
// append-only JSONL log and produces masked previews for display.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
)

const recordsFile = "candidates.jsonl"

// Record is the flattened snapshot of a candidate written at conversation
// end. Records are write-once: nothing in this package mutates or deletes
// existing lines. Operators delete log files out-of-band for retention.
type Record struct {
	Timestamp         string                       `json:"timestamp"`
	FullName          string                       `json:"full_name"`
	Email             string                       `json:"email"`
	Phone             string                       `json:"phone"`
	YearsOfExperience string                       `json:"years_of_experience"`
	DesiredRoles      []string                     `json:"desired_roles"`
	Location          string                       `json:"location"`
	TechStack         []string                     `json:"tech_stack"`
	Answers           map[string]map[string]string `json:"answers"`
}

// Store appends candidate records to <dataDir>/candidates.jsonl.
// Writers within one process are serialized; coordination across processes
// is not attempted (single-process assumption).
type Store struct {
	path string

	mu sync.Mutex
}

// Open prepares a Store rooted at dataDir, creating the directory if absent.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, recordsFile)}, nil
}

// Path returns the location of the records log.
func (s *Store) Path() string {
	return s.path
}

// Append serializes rec as one JSON line at the end of the log. The
// timestamp is stamped at write time (UTC, RFC 3339) if not already set.
// Write failures propagate to the caller; there is no retry or buffering.
func (s *Store) Append(rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening records log: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending record: %w", err)
	}
	return f.Close()
}

// List reads all records from the log in append order. A missing log file
// yields an empty slice. Lines that fail to decode (e.g. a torn final
// write) are skipped.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening records log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records log: %w", err)
	}
	return records, nil
}

// Preview returns a display-only copy of rec with email and phone masked
// and answers omitted. The preview is never persisted.
func Preview(rec Record) Record {
	out := rec
	out.Email = MaskEmail(rec.Email)
	out.Phone = MaskPhone(rec.Phone)
	out.Answers = nil
	return out
}

// MaskEmail hides the local part of an email address, keeping the domain
// intact: "jo@x.com" becomes "j***@x.com", "john@x.com" becomes
// "j***n@x.com". Strings without an '@' are returned unchanged.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at == -1 {
		return email
	}
	local, domain := []rune(email[:at]), email[at+1:]
	if len(local) == 0 {
		return email
	}

	var masked string
	if len(local) <= 2 {
		masked = string(local[0]) + "***"
	} else {
		masked = string(local[0]) + "***" + string(local[len(local)-1])
	}
	return masked + "@" + domain
}

// MaskPhone reduces a phone number to "***-***-" plus its last four digits,
// regardless of original formatting. Strings with fewer than four digits
// are returned unchanged.
func MaskPhone(phone string) string {
	var digits []rune
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return phone
	}
	return "***-***-" + string(digits[len(digits)-4:])
}
