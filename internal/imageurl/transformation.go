package imageurl

import (
	"strings"
)

// Param is a single transformation parameter.
type Param struct {
	Key   string
	Value string
}

// Transformation is one named step of the server-side pipeline.
type Transformation struct {
	Name   string
	Params []Param
}

// String renders "name" or "name:k1=v1,k2=v2" with params in their fixed order.
func (t Transformation) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.Key + "=" + p.Value
	}
	return t.Name + ":" + strings.Join(parts, ",")
}

// Param returns the value of key, if present.
func (t Transformation) Param(key string) (string, bool) {
	for _, p := range t.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ParseTransformation splits a rendered transformation back into its name
// and parameters. Parameter order is kept as given.
func ParseTransformation(s string) Transformation {
	name, rawParams, ok := strings.Cut(strings.TrimSpace(s), ":")
	t := Transformation{Name: name}
	if !ok || rawParams == "" {
		return t
	}
	for _, pair := range strings.Split(rawParams, ",") {
		key, value, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		t.Params = append(t.Params, Param{Key: key, Value: strings.TrimSpace(value)})
	}
	return t
}
