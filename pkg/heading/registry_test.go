package heading

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const wifoProfile = `name: Business Informatics
profile_id: wifo
version: 1.0.0
headings:
  - phrase: Lernergebnisse
    field: learning_outcomes
  - phrase: Credits
    field: ects
`

func testProfile(id, version string) *Profile {
	return &Profile{
		Name:      "Test Profile",
		ProfileID: id,
		Version:   version,
		Headings:  []Entry{{Phrase: "Credits", Field: FieldECTS}},
	}
}

func writeProfile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{name: "valid", profile: *testProfile("p", "1"), wantErr: false},
		{name: "missing name", profile: Profile{ProfileID: "p", Version: "1", Headings: []Entry{{Phrase: "x", Field: FieldLevel}}}, wantErr: true},
		{name: "missing id", profile: Profile{Name: "n", Version: "1", Headings: []Entry{{Phrase: "x", Field: FieldLevel}}}, wantErr: true},
		{name: "missing version", profile: Profile{Name: "n", ProfileID: "p", Headings: []Entry{{Phrase: "x", Field: FieldLevel}}}, wantErr: true},
		{name: "no headings", profile: Profile{Name: "n", ProfileID: "p", Version: "1"}, wantErr: true},
		{name: "blank phrase", profile: Profile{Name: "n", ProfileID: "p", Version: "1", Headings: []Entry{{Phrase: " ", Field: FieldLevel}}}, wantErr: true},
		{name: "unknown field", profile: Profile{Name: "n", ProfileID: "p", Version: "1", Headings: []Entry{{Phrase: "x", Field: "grade"}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}

	if err := registry.Register(testProfile("test", "1.0.0")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}

	// Registering nil should fail
	if err := registry.Register(nil); err == nil {
		t.Error("Register(nil) should return error")
	}

	// Registering same version should fail
	if err := registry.Register(testProfile("test", "1.0.0")); err == nil {
		t.Error("Register() duplicate should return error")
	}

	// Registering different version replaces the profile
	if err := registry.Register(testProfile("test", "2.0.0")); err != nil {
		t.Errorf("Register() new version error = %v", err)
	}
	p, ok := registry.Get("test")
	if !ok {
		t.Fatal("Get(test) found nothing")
	}
	if p.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", p.Version)
	}

	if err := registry.Unregister("test"); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
	if err := registry.Unregister("test"); err == nil {
		t.Error("Unregister() of a missing profile should return error")
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
}

func TestRegistryDictionary(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	dict, err := registry.Dictionary()
	if err != nil {
		t.Fatalf("Dictionary() error = %v", err)
	}
	if dict != Default() {
		t.Error("Dictionary() of an empty registry should be the built-in dictionary")
	}

	if err := registry.Register(testProfile("b", "1")); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(&Profile{
		Name: "A", ProfileID: "a", Version: "1",
		Headings: []Entry{{Phrase: "Credits", Field: FieldLevel}},
	}); err != nil {
		t.Fatal(err)
	}

	dict, err = registry.Dictionary()
	if err != nil {
		t.Fatalf("Dictionary() error = %v", err)
	}
	// profile b is applied after profile a
	if field, ok := dict.Lookup("Credits"); !ok || field != FieldECTS {
		t.Errorf("Lookup(Credits) = %q, %v, want %q", field, ok, FieldECTS)
	}
	if !dict.IsHeading("Modulniveau") {
		t.Error("built-in headings should survive profile extension")
	}
}

func TestRegistryLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, filepath.Join(dir, "wifo.yaml"), wifoProfile)
	writeProfile(t, filepath.Join(dir, "notes.txt"), "ignored")

	registry, err := NewRegistryWithDirectory(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistryWithDirectory() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", registry.Count())
	}

	p, ok := registry.Get("wifo")
	if !ok {
		t.Fatal("Get(wifo) found nothing")
	}
	if p.Source() != filepath.Join(dir, "wifo.yaml") {
		t.Errorf("Source() = %q", p.Source())
	}
	if len(p.Headings) != 2 {
		t.Errorf("len(Headings) = %d, want 2", len(p.Headings))
	}

	// Reloading the same file with an unchanged version is allowed.
	if err := registry.LoadFile(filepath.Join(dir, "wifo.yaml")); err != nil {
		t.Errorf("LoadFile() reload error = %v", err)
	}
	if err := registry.Reload(); err != nil {
		t.Errorf("Reload() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() after reload = %d, want 1", registry.Count())
	}
}

func TestRegistryLoadDirectoryErrors(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	if err := registry.LoadDirectory(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Errorf("LoadDirectory(missing) error = %v, want nil", err)
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yml")
	writeProfile(t, file, "name: [unclosed")
	if err := registry.LoadDirectory(dir); err == nil {
		t.Error("LoadDirectory() with broken YAML should return error")
	}
	if err := registry.LoadDirectory(file); err == nil {
		t.Error("LoadDirectory() of a file should return error")
	}

	if err := NewRegistry(zerolog.Nop()).Reload(); err == nil {
		t.Error("Reload() without a directory should return error")
	}
	if err := NewRegistry(zerolog.Nop()).Watch(); err == nil {
		t.Error("Watch() without a directory should return error")
	}
}

func TestRegistryWatch(t *testing.T) {
	dir := t.TempDir()
	registry, err := NewRegistryWithDirectory(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan string, 8)
	registry.SetOnChange(func(event string, _ *Profile) {
		events <- event
	})
	if err := registry.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer registry.StopWatch()

	if err := registry.Watch(); err == nil {
		t.Error("second Watch() should return error")
	}

	writeProfile(t, filepath.Join(dir, "wifo.yaml"), wifoProfile)

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for profile change")
	}

	if _, ok := registry.Get("wifo"); !ok {
		t.Error("Get(wifo) found nothing after the file was written")
	}
}

// Run with -race: the watch goroutine reads the callback and directory while
// other goroutines replace them.
func TestRegistryWatchConcurrentConfiguration(t *testing.T) {
	dir := t.TempDir()
	registry, err := NewRegistryWithDirectory(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := registry.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	events := make(chan string, 64)
	notify := func(event string, _ *Profile) {
		select {
		case events <- event:
		default:
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				registry.SetOnChange(notify)
				_ = registry.Reload()
			}
		}()
	}
	writeProfile(t, filepath.Join(dir, "wifo.yaml"), wifoProfile)
	wg.Wait()
	// A change racing a Reload may find no profile to report; this one cannot.
	writeProfile(t, filepath.Join(dir, "wifo.yaml"), wifoProfile)

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for profile change")
	}

	registry.StopWatch()
	registry.StopWatch()
}
