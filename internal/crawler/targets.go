package crawler

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadTargets reads the target-fund list: one URL per line, blank lines and
// #-comments ignored, duplicates dropped.
func LoadTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets %s: %w", path, err)
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			line = "https://" + line
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read targets %s: %w", path, err)
	}
	sort.Strings(targets)
	return targets, nil
}
