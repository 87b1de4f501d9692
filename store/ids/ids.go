package ids

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	guuid "github.com/google/uuid"
)

// FileSource reads one identifier per line, blank lines are skipped
type FileSource struct {
	Path         string
	ValidateUUID bool
}

// Load reads the whole identifiers file
func (s *FileSource) Load() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var res []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		id := strings.TrimSpace(scanner.Text())
		if len(id) == 0 {
			continue
		}
		if s.ValidateUUID {
			if _, err := guuid.Parse(id); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", s.Path, line, err)
			}
		}
		res = append(res, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Static is an in-memory identifiers list
type Static []string

// Load returns a copy of the list
func (s Static) Load() ([]string, error) {
	res := make([]string, len(s))
	copy(res, s)
	return res, nil
}
