package heading

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"
)

// Registry manages heading profiles loaded from a directory. All fields
// below mu are guarded by it; the watch goroutine reads them too.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	dir      string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, profile *Profile)
	log      zerolog.Logger
}

// NewRegistry creates an empty profile registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
		log:      logger,
	}
}

// NewRegistryWithDirectory creates a registry and loads profiles from dir.
func NewRegistryWithDirectory(dir string, logger zerolog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a profile. A profile with the same id and version as an
// already registered one is rejected; a different version replaces it.
func (r *Registry) Register(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.profiles[profile.ProfileID]; ok {
		reloaded := profile.source != "" && existing.source == profile.source
		if existing.Version == profile.Version && !reloaded {
			return fmt.Errorf("profile %q version %s already registered", profile.ProfileID, profile.Version)
		}
	}

	r.profiles[profile.ProfileID] = profile
	return nil
}

// Unregister removes a profile by id.
func (r *Registry) Unregister(profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profileID]; !ok {
		return fmt.Errorf("profile %q not found", profileID)
	}
	delete(r.profiles, profileID)
	return nil
}

// Get returns a profile by id.
func (r *Registry) Get(profileID string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	return p, ok
}

// List returns all registered profiles sorted by id.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ProfileID < profiles[j].ProfileID
	})
	return profiles
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Dictionary returns the built-in dictionary extended with every registered
// profile, applied in profile id order.
func (r *Registry) Dictionary() (*Dictionary, error) {
	var extra []Entry
	for _, p := range r.List() {
		extra = append(extra, p.Headings...)
	}
	if len(extra) == 0 {
		return Default(), nil
	}
	return Default().Extend(extra)
}

// LoadDirectory loads all YAML profile files from dir. A missing directory
// loads nothing.
func (r *Registry) LoadDirectory(dir string) error {
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading profiles: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads a single profile file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	profile.source = path

	if err := r.Register(&profile); err != nil {
		return fmt.Errorf("registering profile: %w", err)
	}
	r.log.Debug().Str("profile", profile.ProfileID).Str("path", path).Int("headings", len(profile.Headings)).Msg("loaded heading profile")
	return nil
}

// Reload clears the registry and loads the configured directory again.
func (r *Registry) Reload() error {
	r.mu.Lock()
	dir := r.dir
	if dir != "" {
		r.profiles = make(map[string]*Profile)
	}
	r.mu.Unlock()

	if dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}
	return r.LoadDirectory(dir)
}

// SetOnChange sets a callback invoked after profiles change on disk.
func (r *Registry) SetOnChange(fn func(event string, profile *Profile)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Registry) changeHandler() func(event string, profile *Profile) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onChange
}

// Watch starts watching the profile directory for changes.
func (r *Registry) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}
	if r.watcher != nil {
		return fmt.Errorf("already watching %s", r.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop(watcher, r.stopChan, r.dir)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}, dir string) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, "create")
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, "modify")
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn().Err(err).Str("dir", dir).Msg("profile watcher error")
		}
	}
}

func (r *Registry) handleFileChange(path string, eventType string) {
	if err := r.LoadFile(path); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("reloading heading profile")
		return
	}

	if onChange := r.changeHandler(); onChange != nil {
		if profile, ok := r.profileByFile(path); ok {
			onChange(eventType, profile)
		}
	}
}

// handleFileRemove reloads the whole directory since the registry does not
// know which profile ids a deleted file declared.
func (r *Registry) handleFileRemove(path string) {
	if err := r.Reload(); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("reloading heading profiles after removal")
	}
	if onChange := r.changeHandler(); onChange != nil {
		onChange("remove", nil)
	}
}

func (r *Registry) profileByFile(path string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if p.source == path {
			return p, true
		}
	}
	return nil, false
}

// StopWatch stops watching the profile directory.
func (r *Registry) StopWatch() {
	r.mu.Lock()
	stop, watcher := r.stopChan, r.watcher
	r.stopChan, r.watcher = nil, nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if watcher != nil {
		watcher.Close()
	}
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
