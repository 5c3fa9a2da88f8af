package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	readBlock    = 8 * 1024
	maxLineBytes = 1024 * 1024
	pollInterval = time.Second
)

// Chunk is a batch of complete lines and the offset just past them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Tail returns up to n trailing lines of path. A missing file yields an empty
// chunk at offset 0.
func Tail(path string, n int) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Chunk{}, fmt.Errorf("log path %q is a directory", path)
	}
	size := info.Size()
	if n <= 0 || size == 0 {
		return Chunk{Offset: size}, nil
	}

	start, err := lastLinesStart(file, size, n)
	if err != nil {
		return Chunk{}, err
	}
	lines, offset, err := readFrom(file, start)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Lines: lines, Offset: offset}, nil
}

// lastLinesStart walks backwards in blocks until n line breaks precede the
// tail, ignoring a trailing newline at EOF.
func lastLinesStart(file *os.File, size int64, n int) (int64, error) {
	buf := make([]byte, readBlock)
	end := size
	newlines := 0
	for end > 0 {
		start := max(end-readBlock, 0)
		chunk := buf[:end-start]
		if _, err := file.ReadAt(chunk, start); err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read log file: %w", err)
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' || start+int64(i) == size-1 {
				continue
			}
			newlines++
			if newlines == n {
				return start + int64(i) + 1, nil
			}
		}
		end = start
	}
	return 0, nil
}

// Since returns the complete lines written after offset. When the file was
// truncated or replaced below offset, reading restarts at 0.
func Since(path string, offset int64) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	lines, next, err := readFrom(file, offset)
	if err != nil {
		return Chunk{Offset: offset}, err
	}
	return Chunk{Lines: lines, Offset: next}, nil
}

// readFrom reads whole lines from offset. A final partial line is left for
// the next read.
func readFrom(file *os.File, offset int64) ([]string, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, readBlock)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, offset, nil
			}
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		lines = append(lines, trimEOL(line))
	}
}

func trimEOL(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

// Follow emits the last n lines of path and then every new line until ctx
// is done. It returns nil on cancellation.
//
// Changes are picked up from directory events; a slow poll covers file
// systems that do not deliver them.
func Follow(ctx context.Context, path string, n int, emit func(string)) error {
	path = filepath.Clean(path)
	chunk, err := Tail(path, n)
	if err != nil {
		return err
	}
	for _, line := range chunk.Lines {
		emit(line)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()
	// The file itself may not exist yet or may be replaced, so watch its directory.
	events := watcher.Events
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		events = nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	offset := chunk.Offset
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
		case <-watcher.Errors:
			continue
		case <-ticker.C:
		}
		next, err := Since(path, offset)
		if err != nil {
			return err
		}
		for _, line := range next.Lines {
			emit(line)
		}
		offset = next.Offset
	}
}
