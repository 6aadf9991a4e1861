package disposable

import (
	_ "embed"
	"strings"
)

//go:embed list.txt
var rawList string

// defaultSet parses the embedded list into a fresh map.
func defaultSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(rawList, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" && !strings.HasPrefix(line, "#") {
			set[line] = struct{}{}
		}
	}
	return set
}
