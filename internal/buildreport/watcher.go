package buildreport

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports build report files that appear or change in a directory.
// Bursts of writes to one file are coalesced into one notification.
type Watcher struct {
	Dir     string
	Reports <-chan string // absolute paths, read-only for consumers
	Errors  <-chan error

	reports  chan string
	errs     chan error
	stop     chan struct{} // closed by Stop before the fsnotify watcher
	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for dir. A debounce of zero uses 100ms.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		fw.Close()
		return nil, err
	}
	reports := make(chan string, 16)
	errs := make(chan error, 4)
	return &Watcher{
		Dir:      abs,
		Reports:  reports,
		Errors:   errs,
		reports:  reports,
		errs:     errs,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: debounce,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and both channels. Reports still waiting out their
// debounce are dropped, and Stop does not wait for a consumer to drain
// Reports. Calling Stop again is a no-op.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.watcher.Close()
		<-w.done
		close(w.reports)
		close(w.errs)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isReport(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) < w.debounce {
					continue
				}
				select {
				case w.reports <- file:
					delete(pending, file)
				case <-w.stop:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default: // nobody listening; watch errors are not fatal
			}
		}
	}
}

func isReport(name string) bool {
	base := filepath.Base(name)
	if base == "" || base[0] == '.' {
		return false
	}
	_, err := FormatFromPath(base)
	return err == nil
}
