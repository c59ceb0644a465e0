package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const reloadDelay = 200 * time.Millisecond

// FileLibrary holds the built-in templates overlaid with *.json templates
// from dir. A file may hold one template object or an array of them; file
// templates replace built-ins with the same id.
type FileLibrary struct {
	dir    string
	logger *logging.ChanneledLogger

	mu        sync.RWMutex
	templates map[string]*canvas.ElementTemplate
	loadErrs  map[string]error

	watcher  *fsnotify.Watcher
	debounce func(func())
	done     chan struct{}
	onReload func(count int)
}

var _ repositories.TemplateRepository = (*FileLibrary)(nil)

func NewFileLibrary(dir string, logger *logging.ChanneledLogger) *FileLibrary {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	l := &FileLibrary{
		dir:      dir,
		logger:   logger,
		debounce: debounce.New(reloadDelay),
	}
	l.templates = indexBuiltins()
	return l
}

func indexBuiltins() map[string]*canvas.ElementTemplate {
	out := make(map[string]*canvas.ElementTemplate)
	for _, t := range Builtins() {
		out[t.ID] = t
	}
	return out
}

// Get returns a copy of the template with id
func (l *FileLibrary) Get(id string) (*canvas.ElementTemplate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	if !ok {
		return nil, false
	}
	return cloneTemplate(t), true
}

// List returns every template sorted by category then name
func (l *FileLibrary) List() []*canvas.ElementTemplate {
	l.mu.RLock()
	out := make([]*canvas.ElementTemplate, 0, len(l.templates))
	for _, t := range l.templates {
		out = append(out, cloneTemplate(t))
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LoadErrors reports files that failed to parse on the last load
func (l *FileLibrary) LoadErrors() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.loadErrs))
	for f, err := range l.loadErrs {
		out[f] = err.Error()
	}
	return out
}

// Load rereads the directory. A missing directory leaves only built-ins.
// Broken files are skipped and reported through LoadErrors.
func (l *FileLibrary) Load() error {
	templates := indexBuiltins()
	loadErrs := make(map[string]error)

	entries, err := os.ReadDir(l.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read template dir %s: %w", l.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		parsed, err := readTemplates(path)
		if err != nil {
			loadErrs[e.Name()] = err
			l.logger.CMS().Warn("Skipping template file", "file", e.Name(), "error", err)
			continue
		}
		for _, t := range parsed {
			templates[t.ID] = t
		}
	}

	l.mu.Lock()
	l.templates = templates
	l.loadErrs = loadErrs
	onReload := l.onReload
	l.mu.Unlock()

	l.logger.CMS().Info("Template library loaded", "dir", l.dir, "templates", len(templates), "errors", len(loadErrs))
	if onReload != nil {
		onReload(len(templates))
	}
	return nil
}

func readTemplates(path string) ([]*canvas.ElementTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	var list []*canvas.ElementTemplate
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &list)
	} else {
		var one canvas.ElementTemplate
		err = json.Unmarshal(data, &one)
		list = []*canvas.ElementTemplate{&one}
	}
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func validateTemplate(t *canvas.ElementTemplate) error {
	if t.ID == "" {
		return errors.New("template without id")
	}
	if t.Tag == "" {
		return fmt.Errorf("template %s has no tag", t.ID)
	}
	if canvas.IsVoidTag(t.Tag) && len(t.Children) > 0 {
		return fmt.Errorf("template %s: <%s> cannot have children", t.ID, t.Tag)
	}
	for i := range t.Children {
		child := t.Children[i]
		if child.ID == "" {
			child.ID = fmt.Sprintf("%s-%d", t.ID, i)
		}
		if err := validateTemplate(&child); err != nil {
			return err
		}
	}
	return nil
}

// OnReload registers a callback run after every successful load
func (l *FileLibrary) OnReload(fn func(count int)) {
	l.mu.Lock()
	l.onReload = fn
	l.mu.Unlock()
}

// Watch reloads the library whenever the directory changes. Bursts of
// events are coalesced into one reload.
func (l *FileLibrary) Watch() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	l.mu.Lock()
	l.watcher = watcher
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					l.debounce(func() {
						if err := l.Load(); err != nil {
							l.logger.CMS().Error("Template reload failed", "error", err)
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.CMS().Warn("Template watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()
	l.logger.CMS().Info("Watching template library", "dir", l.dir)
	return nil
}

// Close stops watching
func (l *FileLibrary) Close() error {
	l.mu.Lock()
	watcher := l.watcher
	l.watcher = nil
	if l.done != nil {
		close(l.done)
		l.done = nil
	}
	l.mu.Unlock()
	if watcher == nil {
		return nil
	}
	return watcher.Close()
}

func cloneTemplate(t *canvas.ElementTemplate) *canvas.ElementTemplate {
	out := *t
	out.DefaultProps.Attributes = cloneStrings(t.DefaultProps.Attributes)
	out.DefaultProps.ClassList = append([]string(nil), t.DefaultProps.ClassList...)
	out.DefaultStyles = t.DefaultStyles.Clone()
	if t.Children != nil {
		out.Children = make([]canvas.ElementTemplate, len(t.Children))
		for i := range t.Children {
			out.Children[i] = *cloneTemplate(&t.Children[i])
		}
	}
	return &out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
