package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// BytesToSize renders a byte count with a binary unit suffix, e.g. 1536 -> "1.50KB".
func BytesToSize(bytes uint64) string {
	if bytes == 0 {
		return "0B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f%s", size, units[i])
}

// CheckAndMakeDir makes sure dir exists, creating parents as needed.
// Returns false (and logs why) if it could not be created.
func CheckAndMakeDir(dir string) bool {
	dir = filepath.Clean(dir)
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			log.Errorf("Path %s exists but is not a directory", dir)
			return false
		}
		return true
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		log.WithError(err).Errorf("Failed to create directory %s", dir)
		return false
	}
	log.Debugf("Created directory %s", dir)
	return true
}

// CounterWriter passes writes through to Writer and keeps a running total.
type CounterWriter struct {
	Writer io.Writer
	Total  uint64
}

func (cw *CounterWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.Total += uint64(n)
	return n, err
}
