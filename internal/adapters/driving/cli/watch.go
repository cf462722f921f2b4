package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is indexed.
const DefaultSettle = 2 * time.Second

var (
	watchSettle   time.Duration
	watchReplace  bool
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Index documents as they appear in a directory",
	Long: `Watches a directory and indexes every supported file that is created or
modified in it, once the file has stopped changing for the settle period.
Modified files replace their older generation unless --replace=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", DefaultSettle, "quiet period before a changed file is indexed")
	watchCmd.Flags().BoolVar(&watchReplace, "replace", true, "delete older generations of a re-indexed file")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "index files already in the directory on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	printer := newProgressPrinter(cmd.OutOrStdout())
	opts := driving.IndexOptions{ReplaceExisting: watchReplace}
	w := newDirWatcher(dir, supportedExtensions, watchSettle, func(ctx context.Context, path string) {
		if _, err := indexService.IndexDocumentWithOptions(ctx, path, filepath.Base(path), printer, opts); err != nil {
			logger.Warn("Failed to index %s: %v", path, err)
		}
	})

	ctx := cmd.Context()
	if watchExisting {
		w.indexExisting(ctx)
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}

// dirWatcher indexes files of one directory once they settle. Indexing
// runs on the Run goroutine, so at most one file is indexed at a time.
type dirWatcher struct {
	dir    string
	exts   map[string]bool
	settle time.Duration
	index  func(ctx context.Context, path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDirWatcher(dir string, exts []string, settle time.Duration, index func(context.Context, string)) *dirWatcher {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &dirWatcher{
		dir:    dir,
		exts:   set,
		settle: settle,
		index:  index,
		timers: make(map[string]*time.Timer),
	}
}

// accepts reports whether path is a candidate for indexing.
// Hidden files and office lock files are ignored.
func (w *dirWatcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}

// Run watches until ctx is cancelled.
func (w *dirWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ready := make(chan string)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, ready)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case path := <-ready:
			w.indexIfPresent(ctx, path)
		}
	}
}

func (w *dirWatcher) handle(ctx context.Context, ev fsnotify.Event, ready chan<- string) {
	if !w.accepts(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		logger.Debug("Change detected: %s", ev.Name)
		w.schedule(ctx, ev.Name, ready)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// schedule (re)starts the settle timer of path.
func (w *dirWatcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *dirWatcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *dirWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *dirWatcher) indexIfPresent(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		logger.Debug("Skipping %s: no longer a regular file", path)
		return
	}
	w.index(ctx, path)
}

// indexExisting indexes every accepted file already in the directory,
// in name order.
func (w *dirWatcher) indexExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("Could not list %s: %v", w.dir, err)
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if !e.Type().IsRegular() || !w.accepts(e.Name()) {
			continue
		}
		w.index(ctx, filepath.Join(w.dir, e.Name()))
	}
}
