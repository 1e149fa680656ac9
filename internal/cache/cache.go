// Package cache prunes expired localized cache artifacts.
package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vireo-cli/vireo/where"
)

// TTL bounds the age of cache artifacts before garbage collection removes them.
const TTL = 7 * 24 * time.Hour

// CollectGarbage initializes an asynchronous background task to prune expired cache entries from the filesystem.
func CollectGarbage() {
	go func() {
		for _, dir := range []string{where.Cache(), where.Temp()} {
			_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return nil
				}
				if info, err := d.Info(); err == nil && time.Since(info.ModTime()) > TTL {
					_ = os.Remove(path)
				}
				return nil
			})
		}
	}()
}
