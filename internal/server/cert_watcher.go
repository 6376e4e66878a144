package server

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cvanalyzer/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// certReloader serves the TLS key pair from disk and reloads it when either
// file changes. A failed reload keeps the previous certificate.
type certReloader struct {
	mu   sync.RWMutex
	cert *tls.Certificate

	certFile string
	keyFile  string

	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	stopOnce      sync.Once
	done          chan struct{}

	logger *errors.Logger
}

// newCertReloader loads the key pair once; call Watch to follow changes
func newCertReloader(certFile, keyFile string, logger *errors.Logger) (*certReloader, error) {
	cr := &certReloader{
		certFile:      certFile,
		keyFile:       keyFile,
		debounceDelay: time.Second,
		done:          make(chan struct{}),
		logger:        logger,
	}
	if err := cr.reload(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *certReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}
	cr.mu.Lock()
	cr.cert = &cert
	cr.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// Watch starts following the certificate directories. Directories rather than
// files are watched so atomic rename-based rotations are seen.
func (cr *certReloader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := map[string]bool{filepath.Dir(cr.certFile): true, filepath.Dir(cr.keyFile): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	cr.watcher = watcher

	go cr.watchLoop()
	cr.logger.Info("Certificate file watcher started",
		"cert_file", cr.certFile,
		"key_file", cr.keyFile,
		"debounce_delay", cr.debounceDelay.String())
	return nil
}

func (cr *certReloader) watchLoop() {
	for {
		select {
		case event, ok := <-cr.watcher.Events:
			if !ok {
				return
			}
			if cr.isCertEvent(event) {
				cr.scheduleReload()
			}
		case err, ok := <-cr.watcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "File watcher error")
		case <-cr.done:
			return
		}
	}
}

func (cr *certReloader) isCertEvent(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if name != filepath.Clean(cr.certFile) && name != filepath.Clean(cr.keyFile) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload coalesces the burst of events a rotation produces
func (cr *certReloader) scheduleReload() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	cr.debounceTimer = time.AfterFunc(cr.debounceDelay, func() {
		if err := cr.reload(); err != nil {
			cr.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous pair")
			return
		}
		cr.logger.Info("TLS certificates reloaded successfully")
	})
}

// Stop ends the watch. Safe to call more than once and before Watch.
func (cr *certReloader) Stop() error {
	var err error
	cr.stopOnce.Do(func() {
		close(cr.done)

		cr.mu.Lock()
		if cr.debounceTimer != nil {
			cr.debounceTimer.Stop()
		}
		cr.mu.Unlock()

		if cr.watcher != nil {
			err = cr.watcher.Close()
		}
	})
	return err
}
