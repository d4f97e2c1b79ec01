package client

import (
	"net/url"
	"strings"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

type param struct {
	key   string
	value any
}

// Params is an ordered set of query or form parameters. Values are kept as
// given and stringified when the request is built, so a value that cannot be
// formatted surfaces as a *BuildError there. Nil values are omitted.
//
// Slices are joined with commas into a single parameter, which is how the
// API expects field and ID lists.
type Params struct {
	entries []param
}

// NewParams returns Params populated from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewParams(kv ...any) *Params {
	p := &Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		p.Set(key, kv[i+1])
	}
	return p
}

// Set replaces every value of key with v. The key keeps the position of its
// first occurrence.
func (p *Params) Set(key string, v any) *Params {
	out := p.entries[:0:0]
	replaced := false
	for _, e := range p.entries {
		if e.key != key {
			out = append(out, e)
			continue
		}
		if !replaced {
			out = append(out, param{key: key, value: v})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, param{key: key, value: v})
	}
	p.entries = out
	return p
}

// Add appends another value for key.
func (p *Params) Add(key string, v any) *Params {
	p.entries = append(p.entries, param{key: key, value: v})
	return p
}

// Get returns the first value stored for key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	for _, e := range p.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Del removes key.
func (p *Params) Del(key string) *Params {
	out := p.entries[:0]
	for _, e := range p.entries {
		if e.key != key {
			out = append(out, e)
		}
	}
	p.entries = out
	return p
}

// Len returns the number of stored entries.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return &Params{}
	}
	return &Params{entries: append([]param(nil), p.entries...)}
}

// Merge sets every key of o on p, replacing existing values. Keys repeated
// in o keep all their values.
func (p *Params) Merge(o *Params) *Params {
	if o == nil {
		return p
	}
	seen := make(map[string]bool, len(o.entries))
	for _, e := range o.entries {
		if seen[e.key] {
			p.Add(e.key, e.value)
			continue
		}
		seen[e.key] = true
		p.Set(e.key, e.value)
	}
	return p
}

// Encode renders the parameters in insertion order as
// application/x-www-form-urlencoded text.
func (p *Params) Encode() (string, error) {
	if p == nil {
		return "", nil
	}
	var b strings.Builder
	for _, e := range p.entries {
		if e.value == nil {
			continue
		}
		s, err := rrtype.FormatParam(e.value)
		if err != nil {
			return "", &BuildError{Param: e.key, Reason: "cannot format value", Err: err}
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(e.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String(), nil
}
