package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StartScratchSweeper launches a background goroutine that periodically
// removes stale upload scratch files. Handlers delete their own temp file on
// every exit path; the sweeper only catches files orphaned by a crash.
func StartScratchSweeper(dir string, interval, maxAge time.Duration) {
	if dir == "" {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	go func() {
		for {
			time.Sleep(interval)
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			cutoff := time.Now().Add(-maxAge)
			for _, e := range entries {
				if e.IsDir() || !strings.HasPrefix(e.Name(), "upload-") {
					continue
				}
				info, err := e.Info()
				if err != nil || info.ModTime().After(cutoff) {
					continue
				}
				if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && Sugar != nil {
					Sugar.Warnf("scratch sweeper remove failed: %v", err)
				}
			}
		}
	}()
}
