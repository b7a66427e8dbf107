package compare

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/coolbeans/modcat/pkg/catalog"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestChangeTypeString(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeAdded, "ADDED"},
		{ChangeRemoved, "REMOVED"},
		{ChangeModified, "MODIFIED"},
		{ChangeUnchanged, "UNCHANGED"},
		{ChangeType(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("ChangeType(%d).String() = %q, want %q", int(tt.ct), got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	base := []catalog.Record{
		{ModuleNo: "CS101", Name: "Intro", ECTS: intPtr(6), Level: strPtr("Bachelor")},
		{ModuleNo: "CS102", Name: "Algorithms", Literature: strPtr("Cormen\nSedgewick")},
		{ModuleNo: "CS103", Name: "Old Module"},
	}
	target := []catalog.Record{
		{ModuleNo: "CS101", Name: "Intro", ECTS: intPtr(6), Level: strPtr("Bachelor")},
		{ModuleNo: "CS102", Name: "Algorithms", Literature: strPtr("Cormen\nKleinberg")},
		{ModuleNo: "CS104", Name: "New Module"},
	}

	report := Compare("2023.json", "2024.json", base, target)
	if report.Added != 1 || report.Removed != 1 || report.Modified != 1 || report.Unchanged != 1 {
		t.Errorf("counts = %d added, %d removed, %d modified, %d unchanged, want 1 each",
			report.Added, report.Removed, report.Modified, report.Unchanged)
	}
	if !report.HasChanges() {
		t.Error("HasChanges() = false, want true")
	}

	if len(report.Changes) != 3 {
		t.Fatalf("len(Changes) = %d, want 3", len(report.Changes))
	}
	wantChanges := []struct {
		ct   ChangeType
		code string
	}{
		{ChangeModified, "CS102"},
		{ChangeRemoved, "CS103"},
		{ChangeAdded, "CS104"},
	}
	for i, want := range wantChanges {
		got := report.Changes[i]
		if got.Type != want.ct || got.Code != want.code {
			t.Errorf("Changes[%d] = %s %s, want %s %s", i, got.Type, got.Code, want.ct, want.code)
		}
	}

	fields := report.Changes[0].Fields
	if len(fields) != 1 {
		t.Fatalf("len(Fields) = %d, want 1", len(fields))
	}
	if fields[0].Field != "literature" {
		t.Errorf("Field = %q, want literature", fields[0].Field)
	}
	if fields[0].Similarity != 33 {
		t.Errorf("Similarity = %d, want 33", fields[0].Similarity)
	}
	for _, want := range []string{
		"--- base/CS102/literature",
		"+++ target/CS102/literature",
		"-Sedgewick\n",
		"+Kleinberg\n",
	} {
		if !strings.Contains(fields[0].Diff, want) {
			t.Errorf("Diff missing %q:\n%s", want, fields[0].Diff)
		}
	}
}

func TestCompareUnsetAndECTSFields(t *testing.T) {
	base := []catalog.Record{{ModuleNo: "CS101", Name: "Intro", ECTS: intPtr(6)}}
	target := []catalog.Record{{ModuleNo: "CS101", Name: "Intro", ECTS: intPtr(8), Language: strPtr("English")}}

	report := Compare("a", "b", base, target)
	if len(report.Changes) != 1 {
		t.Fatalf("len(Changes) = %d, want 1", len(report.Changes))
	}

	fields := report.Changes[0].Fields
	if len(fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(fields))
	}
	if fields[0].Field != "ects" {
		t.Errorf("Fields[0].Field = %q, want ects", fields[0].Field)
	}
	if !reflect.DeepEqual(fields[0].Base, strPtr("6")) || !reflect.DeepEqual(fields[0].Target, strPtr("8")) {
		t.Errorf("ects change = %v -> %v, want 6 -> 8", fields[0].Base, fields[0].Target)
	}
	if fields[1].Field != "language" {
		t.Errorf("Fields[1].Field = %q, want language", fields[1].Field)
	}
	if fields[1].Base != nil {
		t.Errorf("language Base = %q, want nil", *fields[1].Base)
	}
	if !reflect.DeepEqual(fields[1].Target, strPtr("English")) {
		t.Errorf("language Target = %v, want English", fields[1].Target)
	}
}

func TestComparePairsRepeatedCodesInOrder(t *testing.T) {
	base := []catalog.Record{
		{ModuleNo: "CS101", Name: "Intro A"},
		{ModuleNo: "CS101", Name: "Intro B"},
	}
	target := []catalog.Record{
		{ModuleNo: "CS101", Name: "Intro A"},
	}

	report := Compare("a", "b", base, target)
	if report.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", report.Unchanged)
	}
	if len(report.Changes) != 1 {
		t.Fatalf("len(Changes) = %d, want 1", len(report.Changes))
	}
	c := report.Changes[0]
	if c.Type != ChangeRemoved || c.Name != "Intro B" || c.Occurrence != 1 {
		t.Errorf("Changes[0] = %s %q occurrence %d, want REMOVED \"Intro B\" occurrence 1", c.Type, c.Name, c.Occurrence)
	}
}

func TestCompareIdentical(t *testing.T) {
	records := []catalog.Record{{ModuleNo: "CS101", Name: "Intro"}}
	report := Compare("a", "b", records, records)
	if report.HasChanges() {
		t.Error("HasChanges() = true, want false")
	}
	if report.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", report.Unchanged)
	}
	if report.Changes == nil {
		t.Error("Changes should be empty, not nil")
	}
}

func TestReportRender(t *testing.T) {
	base := []catalog.Record{{ModuleNo: "CS101", Name: "Intro", Level: strPtr("Bachelor")}}
	target := []catalog.Record{
		{ModuleNo: "CS101", Name: "Intro", Level: strPtr("Master")},
		{ModuleNo: "CS102", Name: "Algorithms"},
	}
	report := Compare("old.json", "new.json", base, target)

	text := report.String()
	for _, want := range []string{
		"Catalog diff: old.json -> new.json",
		"Modules added: 1",
		"MODIFIED CS101: Intro",
		"ADDED CS102: Algorithms",
		"level (0% similar)",
		"    -Bachelor\n",
		"    +Master\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("String() missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "\x1b[") {
		t.Error("String() should not contain colour escapes")
	}

	var colored strings.Builder
	if err := report.Render(&colored, true); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(colored.String(), "\x1b[32m") {
		t.Error("Render(colour) should contain green escapes")
	}
}

func TestReportToJSON(t *testing.T) {
	report := Compare("a", "b", nil, []catalog.Record{{ModuleNo: "CS101", Name: "Intro"}})
	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded struct {
		Changes []struct {
			Type string `json:"type"`
		} `json:"changes"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded.Changes) != 1 || decoded.Changes[0].Type != "ADDED" {
		t.Errorf("changes = %+v, want one ADDED", decoded.Changes)
	}
}

func TestSplitLinesKeepNL(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a\nb", []string{"a\n", "b\n"}},
		{"a\n", []string{"a\n"}},
	}
	for _, tt := range tests {
		if got := splitLinesKeepNL(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitLinesKeepNL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
