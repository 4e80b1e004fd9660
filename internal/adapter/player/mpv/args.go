package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/flightmansam/feishin/internal/domain"
)

const defaultBinary = "mpv"

// observed properties, in observe order; idle-active first so the initial
// pause notification already knows whether anything is loaded
var observed = []string{"idle-active", "pause", "playlist-pos", "volume", "mute", "time-pos"}

// buildArgs returns the full mpv command line for one launch.
func buildArgs(socket string, opts domain.ProcessOptions, params []string) []string {
	args := []string{
		"--idle=yes",
		"--no-terminal",
		"--input-ipc-server=" + socket,
	}
	if opts.AudioOnly {
		args = append(args, "--no-video", "--audio-display=no")
	}
	return append(args, params...)
}

func newSocketPath(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("feishin-mpv-%s.sock", uuid.NewString()[:8]))
}

// processHandle is a launched mpv process.
type processHandle interface {
	Wait() error
	Kill() error
}

// launcher starts mpv; tests replace it with a fake.
type launcher func(binary string, args []string) (processHandle, error)

type cmdHandle struct {
	cmd *exec.Cmd
}

func (h *cmdHandle) Wait() error { return h.cmd.Wait() }

func (h *cmdHandle) Kill() error { return h.cmd.Process.Kill() }

func execLauncher(binary string, args []string) (processHandle, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &cmdHandle{cmd: cmd}, nil
}

// waitForSocket blocks until path exists, the process exits or ctx ends.
func waitForSocket(ctx context.Context, path string, exited <-chan error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	// the socket may have appeared before the watch was added
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("socket watcher closed")
			}
			if event.Name == path && event.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if ok {
				return err
			}
		case err := <-exited:
			if err == nil {
				err = errors.New("exited")
			}
			return fmt.Errorf("mpv exited before opening its socket: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
