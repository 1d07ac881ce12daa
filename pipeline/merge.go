package pipeline

import "sort"

type mergeAdapter[T any, Key cmpOrdered] struct {
	f     func(a, b T) (T, bool)
	keyFn func(T) Key

	keys []Key
	vals map[Key]T

	draining  bool
	drainKeys []Key
	drainIdx  int
}

// Merge keeps a working set of records keyed by keyFn. Every new record
// is compared, in ascending key order, against the working set via f;
// the first prev for which f(prev, next) succeeds is replaced by the
// merged value, otherwise next is inserted as its own entry. Finalize
// drains the working set in ascending key order.
//
// The working set needs deterministic key-ordered iteration the way
// Rust's BTreeMap gives for free; no ordered-map library exists anywhere
// in the dependency graph here, so it is kept as a map plus a separately
// maintained sorted key slice, updated with sort.Search on every insert
// and removal.
func Merge[T any, Key cmpOrdered](f func(a, b T) (T, bool), keyFn func(T) Key) Adapter[T, T] {
	return &mergeAdapter[T, Key]{f: f, keyFn: keyFn, vals: make(map[Key]T)}
}

func (m *mergeAdapter[T, Key]) insert(key Key, val T) {
	if _, exists := m.vals[key]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
		m.keys = append(m.keys, key)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = key
	}
	m.vals[key] = val
}

func (m *mergeAdapter[T, Key]) remove(key Key) {
	delete(m.vals, key)
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
	if i < len(m.keys) && m.keys[i] == key {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
	}
}

func (m *mergeAdapter[T, Key]) Adapt(next T) Signal[T] {
	var mergedKey Key
	var mergedVal T
	found := false

	for _, k := range m.keys {
		prev := m.vals[k]
		if val, ok := m.f(prev, next); ok {
			mergedKey, mergedVal, found = k, val, true
			break
		}
	}

	if found {
		m.remove(mergedKey)
		m.insert(m.keyFn(mergedVal), mergedVal)
	} else {
		m.insert(m.keyFn(next), next)
	}

	return ContinueNone[T]()
}

func (m *mergeAdapter[T, Key]) Finalize() Signal[T] {
	if !m.draining {
		m.draining = true
		m.drainKeys = append([]Key(nil), m.keys...)
		m.drainIdx = 0
	}
	if m.drainIdx >= len(m.drainKeys) {
		return BreakSignal[T]()
	}
	k := m.drainKeys[m.drainIdx]
	m.drainIdx++
	return ContinueSome(m.vals[k])
}
