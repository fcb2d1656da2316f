package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jo@x.com", "j***@x.com"},
		{"john@x.com", "j***n@x.com"},
		{"a@x.com", "a***@x.com"},
		{"abc@example.org", "a***c@example.org"},
		{"no-at-sign", "no-at-sign"},
		{"", ""},
		{"john@sub.example.com", "j***n@sub.example.com"},
	}

	for _, tt := range tests {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskEmail_PreservesDomain(t *testing.T) {
	emails := []string{"jo@x.com", "longlocalpart@domain.io", "x.y+z@a.b.c"}
	for _, e := range emails {
		got := MaskEmail(e)
		domain := e[strings.Index(e, "@"):]
		if !strings.HasSuffix(got, domain) {
			t.Errorf("MaskEmail(%q) = %q, domain %q not preserved", e, got, domain)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(555) 123-4567", "***-***-4567"},
		{"5551234567", "***-***-4567"},
		{"+1 555 123 4567", "***-***-4567"},
		{"123", "123"},
		{"", ""},
		{"abc", "abc"},
		{"1234", "***-***-1234"},
	}

	for _, tt := range tests {
		if got := MaskPhone(tt.in); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	rec := Record{
		FullName: "Jane Doe",
		Email:    "jane@x.com",
		Phone:    "(555) 123-4567",
		Location: "Lisbon",
		Answers:  map[string]map[string]string{"go": {"q": "a"}},
	}

	got := Preview(rec)
	if got.Email != "j***e@x.com" {
		t.Errorf("preview email = %q, want %q", got.Email, "j***e@x.com")
	}
	if got.Phone != "***-***-4567" {
		t.Errorf("preview phone = %q, want %q", got.Phone, "***-***-4567")
	}
	if got.Answers != nil {
		t.Error("preview must not carry answers")
	}
	if got.FullName != "Jane Doe" || got.Location != "Lisbon" {
		t.Error("preview must keep non-PII fields unchanged")
	}

	// The original record is untouched.
	if rec.Email != "jane@x.com" || rec.Answers == nil {
		t.Error("Preview mutated its input")
	}
}

func TestAppend_CreatesDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Append(Record{FullName: "Jane Doe"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("records log not created: %v", err)
	}
}

func TestAppend_OneLinePerRecord(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if err := store.Append(Record{FullName: name}); err != nil {
			t.Fatalf("Append(%s): %v", name, err)
		}
	}

	f, err := os.Open(store.Path())
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if rec.Timestamp == "" {
			t.Errorf("line %d: timestamp not stamped", lines+1)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("log has %d lines, want 3", lines)
	}
}

func TestAppend_NeverTruncates(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Append(Record{FullName: "First"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	before, _ := os.ReadFile(store.Path())

	if err := store.Append(Record{FullName: "Second"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	after, _ := os.ReadFile(store.Path())

	if !strings.HasPrefix(string(after), string(before)) {
		t.Error("second append rewrote existing content")
	}
}

func TestList(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Empty store: no file yet.
	recs, err := store.List()
	if err != nil {
		t.Fatalf("List on empty store: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}

	want := Record{
		FullName:     "Jane Doe",
		Email:        "jane@x.com",
		DesiredRoles: []string{"Backend Engineer"},
		TechStack:    []string{"Go", "SQL"},
		Answers:      map[string]map[string]string{"Go": {"q1": "a1"}},
	}
	if err := store.Append(want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	recs, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	got := recs[0]
	if got.FullName != want.FullName || got.Email != want.Email {
		t.Errorf("got %+v, want fields of %+v", got, want)
	}
	if len(got.TechStack) != 2 || got.TechStack[0] != "Go" {
		t.Errorf("tech stack = %v, want [Go SQL]", got.TechStack)
	}
	if got.Answers["Go"]["q1"] != "a1" {
		t.Errorf("answers = %v, want Go.q1 = a1", got.Answers)
	}
}

func TestList_SkipsTornLine(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Append(Record{FullName: "Intact"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Simulate a torn final write.
	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	f.WriteString(`{"timestamp":"2026-01-01T00:0`)
	f.Close()

	recs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].FullName != "Intact" {
		t.Errorf("got %+v, want only the intact record", recs)
	}
}
