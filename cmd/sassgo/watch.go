package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sassgo/compiler"
	"sassgo/diag"
	"sassgo/dispatch"
	"sassgo/watch"
)

type watchSetup struct {
	src      string
	layout   layout
	targets  []target
	debounce time.Duration
}

// tracked is target being recompiled on changes.
type tracked struct {
	target
	// deps are files last successful compilation read
	deps map[string]bool
	// issued is sequence number of the latest started compilation, written
	// of the one which output is on disk
	issued  uint64
	written uint64
}

// session keeps watch mode state. Results arrive on dispatcher workers.
type session struct {
	ctx   context.Context
	d     *dispatch.Dispatcher
	b     *builder
	w     *watch.Watcher
	setup watchSetup

	mu      sync.Mutex
	targets map[string]*tracked
}

type job struct {
	key string
	seq uint64
	t   target
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}

// watchPaths lists SOURCE and every existing include path.
func watchPaths(src string, includePaths []string) []string {
	paths := []string{src}
	for _, p := range includePaths {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// track adds target unless it is known already, caller holds the lock.
func (s *session) track(t target) (string, *tracked) {
	key := absPath(t.input)
	if tt, ok := s.targets[key]; ok {
		return key, tt
	}
	tt := &tracked{target: t, deps: map[string]bool{key: true}}
	s.targets[key] = tt
	return key, tt
}

// schedule issues sequence number for target, caller holds the lock.
func (s *session) schedule(key string, tt *tracked) job {
	tt.issued++
	return job{key: key, seq: tt.issued, t: tt.target}
}

// start submits compilations, it must not be called under the lock as
// submission waits for queue space.
func (s *session) start(jobs []job) {
	for _, j := range jobs {
		s.d.CompileFileAsync(s.ctx, j.t.input, s.b.options(j.t),
			func(out *compiler.Output) { s.succeeded(j, out) },
			func(err *diag.Error) { s.b.failed(j.t, err) })
	}
}

func (s *session) succeeded(j job, out *compiler.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tt, ok := s.targets[j.key]
	if !ok {
		return
	}
	if j.seq < tt.written {
		s.b.log.Debug("Dropping stale result", zap.Stringer("source", j.t), zap.Uint64("seq", j.seq), zap.Uint64("written", tt.written))
		return
	}
	tt.written = j.seq

	deps := map[string]bool{j.key: true}
	for _, f := range out.IncludedFiles {
		deps[f] = true
		if f == j.key {
			continue
		}
		// imports live anywhere, watch each of them precisely
		if _, err := os.Stat(f); err == nil {
			if err := s.w.Add(f); err != nil {
				s.b.log.Warn("Unable to watch import", zap.String("file", f), zap.Error(err))
			}
		}
	}
	tt.deps = deps

	if err := s.b.write(j.t, out); err != nil {
		s.b.log.Error("Unable to write results", zap.Stringer("source", j.t), zap.Error(err))
		return
	}
	s.b.log.Info("Compiled", zap.Stringer("source", j.t), zap.String("destination", j.t.out))
}

// changed schedules every target depending on one of the changed files. For
// directory SOURCE new entries are picked up and removed ones are forgotten.
func (s *session) changed(files []string) {
	s.b.log.Debug("Changes detected", zap.Strings("files", files))

	fi, err := os.Stat(s.setup.src)
	rescan := err == nil && fi.IsDir()

	var fresh []target
	if rescan {
		if fresh, err = collectTargets(s.setup.src, s.setup.layout, nil); err != nil {
			s.b.log.Warn("Unable to rescan sources", zap.Error(err))
			rescan = false
		}
	}

	s.mu.Lock()
	var jobs []job
	if rescan {
		present := make(map[string]bool, len(fresh))
		for _, t := range fresh {
			key := absPath(t.input)
			present[key] = true
			if _, ok := s.targets[key]; !ok {
				_, tt := s.track(t)
				jobs = append(jobs, s.schedule(key, tt))
			}
		}
		for key := range s.targets {
			if !present[key] {
				s.b.log.Info("Source removed", zap.String("source", key))
				delete(s.targets, key)
			}
		}
	}
	for key, tt := range s.targets {
		if slices.ContainsFunc(jobs, func(j job) bool { return j.key == key }) {
			continue
		}
		if slices.ContainsFunc(files, func(f string) bool { return tt.deps[f] }) {
			jobs = append(jobs, s.schedule(key, tt))
		}
	}
	s.mu.Unlock()

	slices.SortFunc(jobs, func(a, b job) int { return strings.Compare(a.key, b.key) })
	s.start(jobs)
}

// runWatch compiles targets and then keeps recompiling them until ctx is
// done. Failures are logged, watching continues.
func runWatch(ctx context.Context, d *dispatch.Dispatcher, b *builder, setup watchSetup) (err error) {
	w, err := watch.New(watchPaths(setup.src, b.base.IncludePaths), watch.Options{
		Recursive: setup.layout.recursive,
		Debounce:  setup.debounce,
	}, b.log)
	if err != nil {
		return fmt.Errorf("unable to watch sources: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to stop watching: %w", cerr)
		}
	}()
	// results still in flight may add watches
	defer d.Close()

	s := &session{
		ctx:     ctx,
		d:       d,
		b:       b,
		w:       w,
		setup:   setup,
		targets: make(map[string]*tracked, len(setup.targets)),
	}
	s.mu.Lock()
	jobs := make([]job, 0, len(setup.targets))
	for _, t := range setup.targets {
		key, tt := s.track(t)
		jobs = append(jobs, s.schedule(key, tt))
	}
	s.mu.Unlock()
	s.start(jobs)

	b.log.Info("Watching for changes", zap.Strings("paths", w.Paths()))
	if err := w.Run(ctx, s.changed); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.log.Info("Watching stopped")
	return nil
}
