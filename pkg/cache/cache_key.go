package cache

import (
	"sort"
	"strconv"
	"strings"
)

const keyPrefix = "f:"

// KeyBuilder derives cache keys for transformed images.
//
// With Parameterized unset every variant of a path shares the key "f:<path>",
// so only one variant per path can be cached at a time.
type KeyBuilder struct {
	Parameterized bool
}

// Build returns "f:<path>" followed by the present parameters as
// ",name:value" pairs sorted by name.
func (b KeyBuilder) Build(sourcePath string, width, height *int, format string, quality *int) string {
	if !b.Parameterized {
		return keyPrefix + sourcePath
	}

	params := make([]string, 0, 4)
	add := func(name, value string) {
		params = append(params, name+":"+value)
	}
	if width != nil {
		add("width", strconv.Itoa(*width))
	}
	if height != nil {
		add("height", strconv.Itoa(*height))
	}
	if format != "" {
		add("format", format)
	}
	if quality != nil {
		add("quality", strconv.Itoa(*quality))
	}
	if len(params) == 0 {
		return keyPrefix + sourcePath
	}
	// names are distinct, so sorting the pairs sorts by name
	sort.Strings(params)

	return keyPrefix + sourcePath + "," + strings.Join(params, ",")
}
