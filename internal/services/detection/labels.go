package detection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLabels parses a class names file, one label per line. Blank lines are
// kept as empty labels so class ids stay aligned with line numbers.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	// drop trailing blank lines
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("read labels: no class names found")
	}
	return labels, nil
}

func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels file %s: %w", path, err)
	}
	defer f.Close()
	return ReadLabels(f)
}

// LabelFor returns the class name for id, or "class_<id>" when out of range
func LabelFor(labels []string, id int) string {
	if id >= 0 && id < len(labels) && labels[id] != "" {
		return labels[id]
	}
	return fmt.Sprintf("class_%d", id)
}

// CenterBox converts a normalized center/size box into clamped pixel corners
func CenterBox(cx, cy, w, h float32, width, height int) [4]int {
	x1 := int((cx - w/2) * float32(width))
	y1 := int((cy - h/2) * float32(height))
	x2 := int((cx + w/2) * float32(width))
	y2 := int((cy + h/2) * float32(height))
	return [4]int{clamp(x1, 0, width), clamp(y1, 0, height), clamp(x2, 0, width), clamp(y2, 0, height)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
