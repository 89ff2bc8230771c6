package engine

import (
	"fmt"
	"sort"
	"strings"
)

// AnyCaps accepts every media type.
const AnyCaps = "ANY"

// Caps is a media-type descriptor: structure name and attributes, e.g.
// "audio/x-raw, rate=44100, channels=2".
type Caps struct {
	Name   string
	Fields map[string]string
}

// NewCaps returns caps with provided name and key/value pairs.
func NewCaps(name string, kv ...string) Caps {
	c := Caps{Name: name}
	if len(kv) > 0 {
		c.Fields = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		c.Fields[kv[i]] = kv[i+1]
	}
	return c
}

// ParseCaps parses comma-separated caps string.
func ParseCaps(s string) (Caps, error) {
	parts := strings.Split(s, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Caps{}, fmt.Errorf("caps %q: empty structure name", s)
	}
	c := Caps{Name: name}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return Caps{}, fmt.Errorf("caps %q: malformed field %q", s, p)
		}
		if c.Fields == nil {
			c.Fields = make(map[string]string)
		}
		c.Fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return c, nil
}

// HasPrefix reports whether the structure name starts with the prefix.
func (c Caps) HasPrefix(prefix string) bool {
	return strings.HasPrefix(c.Name, prefix)
}

// Accepts reports whether caps of a template accepts provided caps.
func (c Caps) Accepts(other Caps) bool {
	return c.Name == AnyCaps || other.Name == AnyCaps || c.Name == other.Name
}

// Field returns attribute value.
func (c Caps) Field(key string) (string, bool) {
	v, ok := c.Fields[key]
	return v, ok
}

func (c Caps) String() string {
	if len(c.Fields) == 0 {
		return c.Name
	}
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(c.Name)
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s=%s", k, c.Fields[k])
	}
	return b.String()
}
