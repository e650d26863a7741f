package device

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const procInputDevices = "/proc/bus/input/devices"

// Discover lists device nodes that look like keyboards by walking the
// kernel's input device table. Entries with a KEY capability bitmap
// and an eventN handler qualify; /dev/input/by-id/*-kbd symlink
// targets are folded in as a fallback.
func Discover() ([]string, error) {
	f, err := os.Open(procInputDevices)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procInputDevices, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var paths []string

	scanner := bufio.NewScanner(f)
	var handler string
	isKeyboard := false
	flush := func() {
		if isKeyboard && handler != "" {
			if _, ok := seen[handler]; !ok {
				seen[handler] = struct{}{}
				paths = append(paths, handler)
			}
		}
		handler = ""
		isKeyboard = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "H: Handlers=") {
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
			}
		}

		if strings.HasPrefix(line, "B: KEY=") {
			// A keyboard advertises a wide KEY bitmap; pointer devices
			// with a couple of buttons show a short one.
			if len(strings.TrimPrefix(line, "B: KEY=")) > 8 {
				isKeyboard = true
			}
		}

		if line == "" {
			flush()
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", procInputDevices, err)
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	for _, link := range matches {
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			continue
		}
		if _, ok := seen[target]; !ok {
			seen[target] = struct{}{}
			paths = append(paths, target)
		}
	}

	return paths, nil
}

// OpenDiscovered opens every discovered keyboard node it can. Nodes
// failing to open (commonly a permissions issue) are skipped; the
// paths that failed are returned alongside the handles.
func OpenDiscovered() ([]Handle, []string, error) {
	paths, err := Discover()
	if err != nil {
		return nil, nil, err
	}

	var handles []Handle
	var failed []string
	for _, path := range paths {
		h, err := Open(path)
		if err != nil {
			failed = append(failed, path)
			continue
		}
		handles = append(handles, h)
	}
	return handles, failed, nil
}
