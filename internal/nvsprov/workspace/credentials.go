package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/pkg/log"
)

// ErrCredentialsMissing is wrapped by the CredentialsMissing error of LoadCredentials.
var ErrCredentialsMissing = errors.New("credential files are missing or empty")

// LoadCredentials checks that both credential slots hold a non-empty regular
// file. The error names every slot that is not ready.
func LoadCredentials(ws *Workspace) (core.Credentials, error) {
	var missing []string
	for _, p := range []string{ws.CertPath(), ws.KeyPath()} {
		if !slotFilled(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return core.Credentials{}, core.NewError(core.KindCredentialsMissing, "load credentials", ws.Dir,
			fmt.Errorf("%w: %s", ErrCredentialsMissing, strings.Join(missing, ", ")))
	}
	return core.Credentials{CertPath: ws.CertPath(), KeyPath: ws.KeyPath()}, nil
}

func slotFilled(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

// WaitCredentials blocks until both credential slots are filled, the timeout
// elapses or ctx is done. It returns at once when the slots are already filled.
func WaitCredentials(ctx context.Context, ws *Workspace, timeout time.Duration) (core.Credentials, error) {
	if creds, err := LoadCredentials(ws); err == nil {
		return creds, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return core.Credentials{}, fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(ws.Dir); err != nil {
		return core.Credentials{}, fmt.Errorf("failed to watch %s: %w", ws.Dir, err)
	}

	// The files may have been written between the first check and Add.
	if creds, err := LoadCredentials(ws); err == nil {
		return creds, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("Waiting for credential files", "cert", ws.CertPath(), "key", ws.KeyPath(), "timeout", timeout)
	for {
		select {
		case <-ctx.Done():
			return LoadCredentials(ws)
		case ev, ok := <-watcher.Events:
			if !ok {
				return LoadCredentials(ws)
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if creds, err := LoadCredentials(ws); err == nil {
				log.Info("Credential files are ready", "dir", ws.Dir)
				return creds, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return LoadCredentials(ws)
			}
			log.Warn("File watcher error", "dir", ws.Dir, "err", err)
		}
	}
}
