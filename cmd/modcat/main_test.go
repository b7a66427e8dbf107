package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coolbeans/modcat/pkg/catalog"
	"github.com/coolbeans/modcat/pkg/store"
)

const sampleCatalog = "Module Handbook\n\n" +
	"CS101: Intro to Programming\n" +
	"Level\nBachelor\n" +
	"ECTS\n6\n" +
	"Learning outcomes\n" +
	"Expertise: Variables and loops\n" +
	"Personal competence: Pair programming\n" +
	"Language\nEnglish\n" +
	"\f" +
	"CS102: Data Structures\n" +
	"Level\nBachelor\n" +
	"ECTS\n5\n" +
	"Literature\nCormen et al.\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-format", "json"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustExecute(t *testing.T, args ...string) (string, string) {
	t.Helper()
	stdout, stderr, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%v: error = %v\nstderr: %s", args, err, stderr)
	}
	return stdout, stderr
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestParseCommandJSON(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	src := writeFile(t, dir, "catalog.txt", sampleCatalog)

	stdout, _ := mustExecute(t, "parse", "--source", src)

	var records []catalog.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	first := records[0]
	if first.ModuleNo != "CS101" || first.Name != "Intro to Programming" {
		t.Errorf("records[0] = %s %q, want CS101 \"Intro to Programming\"", first.ModuleNo, first.Name)
	}
	if first.ECTS == nil || *first.ECTS != 6 {
		t.Errorf("records[0].ECTS = %v, want 6", first.ECTS)
	}
	if e := first.LearningOutcomes.Expertise; e == nil || *e != "Variables and loops" {
		t.Errorf("records[0] expertise = %v, want \"Variables and loops\"", e)
	}
	if records[1].ModuleNo != "CS102" {
		t.Errorf("records[1].ModuleNo = %q, want CS102", records[1].ModuleNo)
	}
}

func TestParseCommandPagesAndOverview(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	src := writeFile(t, dir, "catalog.txt", sampleCatalog)
	csvPath := writeFile(t, dir, "overview.csv", "Module,Name,ECTS,Level\nCS102,Algorithms and Data Structures,8,Master\n")
	out := filepath.Join(dir, "modules.json")

	mustExecute(t, "parse", "--source", src, "--pages", "2", "--overview", csvPath, "-o", out)

	records, err := store.ReadJSONFile(out)
	if err != nil {
		t.Fatalf("ReadJSONFile() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Name != "Algorithms and Data Structures" {
		t.Errorf("Name = %q, want overview name", rec.Name)
	}
	if rec.ECTS == nil || *rec.ECTS != 8 {
		t.Errorf("ECTS = %v, want 8", rec.ECTS)
	}
	if rec.Level == nil || *rec.Level != "Master" {
		t.Errorf("Level = %v, want Master", rec.Level)
	}
}

func TestParseCommandJSONOverview(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	src := writeFile(t, dir, "catalog.txt", sampleCatalog)
	jsonPath := writeFile(t, dir, "overview.json",
		`[{"Module No.": "CS101", "Lecturer name": "Dr. Smith", "Name of module": "Programming I", "ECTS": 7}]`)

	stdout, _ := mustExecute(t, "parse", "--source", src, "--overview", jsonPath)

	var records []catalog.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "Programming I" {
		t.Errorf("Name = %q, want Programming I", records[0].Name)
	}
	if records[0].ECTS == nil || *records[0].ECTS != 7 {
		t.Errorf("ECTS = %v, want 7", records[0].ECTS)
	}
}

func TestParseCommandStrictDuplicates(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	dup := sampleCatalog + "\fCS101: Intro to Programming (repeat)\nLevel\nBachelor\n"
	src := writeFile(t, dir, "catalog.txt", dup)

	_, stderr := mustExecute(t, "parse", "--source", src, "--format", "summary")
	assertContains(t, stderr, "duplicate module code")

	_, _, err := execute(t, "parse", "--source", src, "--strict")
	if !errors.Is(err, catalog.ErrDuplicateCode) {
		t.Errorf("parse --strict error = %v, want ErrDuplicateCode", err)
	}
}

func TestParseCommandErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	src := writeFile(t, dir, "catalog.txt", sampleCatalog)

	_, _, err := execute(t, "parse")
	if err == nil || err.Error() != "--source flag is required" {
		t.Errorf("parse without source error = %v", err)
	}

	_, _, err = execute(t, "parse", "--source", src, "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown format: xml") {
		t.Errorf("parse --format xml error = %v", err)
	}

	if _, _, err = execute(t, "parse", "--source", src, "--pages", "3-1"); err == nil {
		t.Error("parse --pages 3-1 should return error")
	}
}

func TestParseAndCompareViaSQLite(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	db := filepath.Join(dir, "runs.db")
	first := writeFile(t, dir, "v1.txt", sampleCatalog)
	second := writeFile(t, dir, "v2.txt", strings.Replace(sampleCatalog, "Cormen et al.", "Sedgewick", 1))

	mustExecute(t, "parse", "--source", first, "--sqlite", db, "-o", filepath.Join(dir, "v1.json"))
	mustExecute(t, "parse", "--source", second, "--sqlite", db, "-o", filepath.Join(dir, "v2.json"))

	stdout, _ := mustExecute(t, "compare",
		"--base", filepath.Join(dir, "v1.json"),
		"--target", filepath.Join(dir, "v2.json"),
		"--no-color")
	assertContains(t, stdout, "CS102", "-Cormen et al.", "+Sedgewick")
	if strings.Contains(stdout, "CS101:") {
		t.Errorf("unchanged CS101 should not be reported:\n%s", stdout)
	}

	stdout, _ = mustExecute(t, "compare",
		"--base", filepath.Join(dir, "v1.json"),
		"--target", filepath.Join(dir, "v2.json"),
		"--format", "json")
	var report struct {
		Modified int `json:"modified"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if report.Modified != 1 {
		t.Errorf("modified = %d, want 1", report.Modified)
	}

	_, _, err := execute(t, "compare", "--base", filepath.Join(dir, "v1.json"))
	if err == nil || err.Error() != "--base and --target flags are required" {
		t.Errorf("compare without target error = %v", err)
	}
}

func TestInspectAndHeadingsCommands(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	src := writeFile(t, dir, "catalog.txt", sampleCatalog)

	stdout, _ := mustExecute(t, "inspect", "--source", src)
	assertContains(t, stdout, "CS101", "inline", "2 modules")

	stdout, _ = mustExecute(t, "headings")
	assertContains(t, stdout, "learning_outcomes")

	stdout, _ = mustExecute(t, "headings", "--source", src)
	assertContains(t, stdout, "Literature", "literature")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"Datenbanksysteme", 9, "Datenb..."},
		{"Prüfungsform", 7, "Prüf..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup, like testing.T.Chdir in newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
