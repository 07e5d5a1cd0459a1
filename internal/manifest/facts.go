package manifest

// Facts is an insertion-ordered set of key/value facts discovered for one
// package. Setting an existing key replaces its value but keeps its position.
type Facts struct {
	keys   []string
	values map[string]string
}

// NewFacts creates an empty fact set.
func NewFacts() *Facts {
	return &Facts{values: make(map[string]string)}
}

// FactsOf builds a fact set from alternating key, value arguments.
// It panics on an odd number of arguments.
func FactsOf(kv ...string) *Facts {
	if len(kv)%2 != 0 {
		panic("manifest: FactsOf requires key/value pairs")
	}
	f := NewFacts()
	for i := 0; i < len(kv); i += 2 {
		f.Set(kv[i], kv[i+1])
	}
	return f
}

// Set records a fact, overriding any earlier value for the same key.
func (f *Facts) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value recorded for key.
func (f *Facts) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (f *Facts) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Len returns the number of facts.
func (f *Facts) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Merge copies every fact of other into f in other's order.
// Values from other win over values already in f.
func (f *Facts) Merge(other *Facts) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
}
