package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkbuild/engine/assets/loaders"
	"github.com/spaghettifunk/vkbuild/engine/core"
)

// DescriptionSuffix marks the files the library loads.
const DescriptionSuffix = ".pipeline.toml"

// ReloadEvent reports the outcome of one file change. Err is set when the
// file failed to load; the previously loaded set, if any, stays in place.
type ReloadEvent struct {
	Path    string
	Name    string
	Removed bool
	Err     error
}

type entry struct {
	set        *loaders.PipelineSet
	lastLoaded time.Time
}

// PipelineLibrary keeps the pipeline sets found under a directory and
// reloads them when their files change. Sets are immutable, so readers get
// them without copying.
type PipelineLibrary struct {
	sets   map[string]entry
	paths  map[string]string
	loader Loader

	mutex sync.RWMutex

	subMutex    sync.Mutex
	subscribers []chan ReloadEvent

	done        chan struct{}
	stopped     chan struct{}
	fsnotify    *fsnotify.Watcher
	initialized bool
	started     bool
	isClosed    bool
}

func NewPipelineLibrary() (*PipelineLibrary, error) {
	return NewPipelineLibraryWithLoader(&loaders.PipelineLoader{})
}

func NewPipelineLibraryWithLoader(loader Loader) (*PipelineLibrary, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PipelineLibrary{
		sets:     make(map[string]entry),
		paths:    make(map[string]string),
		loader:   loader,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize loads every description under dir and starts watching it.
// Files that fail to load are reported in the returned error; the others
// are available regardless.
func (pl *PipelineLibrary) Initialize(dir string) error {
	pl.subMutex.Lock()
	closed, initialized := pl.isClosed, pl.initialized
	pl.initialized = true
	pl.subMutex.Unlock()
	switch {
	case closed:
		return errors.New("pipeline library already shut down")
	case initialized:
		return errors.New("pipeline library already initialized")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var loadErrs []error
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return pl.fsnotify.Add(path)
		}
		if isDescription(path) {
			if ev := pl.load(path); ev.Err != nil {
				loadErrs = append(loadErrs, ev.Err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	pl.subMutex.Lock()
	pl.started = true
	pl.subMutex.Unlock()
	go pl.start()

	core.LogInfo("pipeline library watching %s: %d sets loaded", dir, len(pl.Names()))
	return errors.Join(loadErrs...)
}

// Get returns the set loaded under name.
func (pl *PipelineLibrary) Get(name string) (*loaders.PipelineSet, bool) {
	pl.mutex.RLock()
	defer pl.mutex.RUnlock()

	e, ok := pl.sets[name]
	return e.set, ok
}

// LastLoaded is when the set called name was last (re)loaded.
func (pl *PipelineLibrary) LastLoaded(name string) (time.Time, bool) {
	pl.mutex.RLock()
	defer pl.mutex.RUnlock()

	e, ok := pl.sets[name]
	return e.lastLoaded, ok
}

// Names lists the loaded sets in lexical order.
func (pl *PipelineLibrary) Names() []string {
	pl.mutex.RLock()
	defer pl.mutex.RUnlock()

	names := make([]string, 0, len(pl.sets))
	for n := range pl.sets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Subscribe returns a channel receiving one event per handled file change.
// A subscriber that falls behind misses events. The channel is closed by
// Shutdown.
func (pl *PipelineLibrary) Subscribe() <-chan ReloadEvent {
	ch := make(chan ReloadEvent, 16)

	pl.subMutex.Lock()
	defer pl.subMutex.Unlock()
	if pl.isClosed {
		close(ch)
		return ch
	}
	pl.subscribers = append(pl.subscribers, ch)
	return ch
}

// Shutdown stops watching and closes every subscriber channel.
func (pl *PipelineLibrary) Shutdown() error {
	pl.subMutex.Lock()
	if pl.isClosed {
		pl.subMutex.Unlock()
		return nil
	}
	pl.isClosed = true
	started := pl.started
	pl.subMutex.Unlock()

	close(pl.done)
	err := pl.fsnotify.Close()
	if started {
		<-pl.stopped
	}

	pl.subMutex.Lock()
	for _, ch := range pl.subscribers {
		close(ch)
	}
	pl.subscribers = nil
	pl.subMutex.Unlock()
	return err
}

func (pl *PipelineLibrary) start() {
	defer close(pl.stopped)
	for {
		select {

		case e, ok := <-pl.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					pl.watchRecursive(e.Name)
				}
				continue
			}
			switch {
			case !isDescription(e.Name):
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pl.publish(pl.load(e.Name))
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				pl.publish(pl.remove(e.Name))
			}

		case err, ok := <-pl.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-pl.done:
			return
		}
	}
}

// watchRecursive adds a newly created directory tree and loads the
// descriptions that landed in it before the watch was in place.
func (pl *PipelineLibrary) watchRecursive(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return pl.fsnotify.Add(path)
		}
		if isDescription(path) {
			pl.publish(pl.load(path))
		}
		return nil
	})
	if err != nil {
		core.LogError("unable to watch %s: %s", dir, err)
	}
}

// load (re)loads the file at path. On failure the set previously loaded
// from path is kept.
func (pl *PipelineLibrary) load(path string) ReloadEvent {
	clock := core.NewClock()
	clock.Start()

	set, err := pl.loader.Load(path)
	if err != nil {
		core.LogError("unable to load pipelines from %s: %s", path, err)
		pl.mutex.RLock()
		name := pl.paths[path]
		pl.mutex.RUnlock()
		return ReloadEvent{Path: path, Name: name, Err: err}
	}

	pl.mutex.Lock()
	if owner, ok := pl.ownerOf(set.Name); ok && owner != path {
		pl.mutex.Unlock()
		err := fmt.Errorf("%s: pipeline set %q is already loaded from %s", path, set.Name, owner)
		core.LogError(err.Error())
		return ReloadEvent{Path: path, Name: set.Name, Err: err}
	}
	if prev, ok := pl.paths[path]; ok && prev != set.Name {
		delete(pl.sets, prev)
	}
	pl.sets[set.Name] = entry{set: set, lastLoaded: time.Now()}
	pl.paths[path] = set.Name
	pl.mutex.Unlock()

	clock.Update()
	core.LogInfo("loaded pipeline set %s from %s in %s", set.Name, path, clock.Elapsed())
	return ReloadEvent{Path: path, Name: set.Name}
}

// ownerOf returns the file the set called name was loaded from. The caller
// holds pl.mutex.
func (pl *PipelineLibrary) ownerOf(name string) (string, bool) {
	for path, n := range pl.paths {
		if n == name {
			return path, true
		}
	}
	return "", false
}

func (pl *PipelineLibrary) remove(path string) ReloadEvent {
	pl.mutex.Lock()
	defer pl.mutex.Unlock()

	name, ok := pl.paths[path]
	if ok {
		delete(pl.sets, name)
		delete(pl.paths, path)
		core.LogInfo("dropped pipeline set %s, %s was removed", name, path)
	}
	return ReloadEvent{Path: path, Name: name, Removed: true}
}

func (pl *PipelineLibrary) publish(ev ReloadEvent) {
	pl.subMutex.Lock()
	defer pl.subMutex.Unlock()

	for _, ch := range pl.subscribers {
		select {
		case ch <- ev:
		default:
			core.LogWarn("subscriber too slow, dropped reload event for %s", ev.Path)
		}
	}
}

func isDescription(path string) bool {
	return strings.HasSuffix(filepath.Base(path), DescriptionSuffix)
}
