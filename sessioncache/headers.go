package sessioncache

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"google.golang.org/grpc/metadata"
)

// HeaderKind identifies the representation of a header container
type HeaderKind int

const (
	// KindMapping is a map keyed by header name, such as map[string]string
	// or the map[string]any a JSON decoder produces
	KindMapping HeaderKind = iota
	// KindPairList is an ordered slice of name/value pairs, such as
	// [][2]string, [][]string or []any
	KindPairList
	// KindCollection is a live, case-insensitive collection such as http.Header
	KindCollection
)

// String returns the name used for the kind in diagnostic lines
func (k HeaderKind) String() string {
	switch k {
	case KindPairList:
		return "array"
	case KindCollection:
		return "headers"
	default:
		return "object"
	}
}

// Collection is a header container with its own case-insensitive lookup.
// Collections are mutated in place.
type Collection interface {
	Has(name string) bool
	Set(name, value string)
}

// httpHeaderCollection adapts http.Header to Collection
type httpHeaderCollection http.Header

func (h httpHeaderCollection) Has(name string) bool {
	return hasFoldedKey(h, name)
}

func (h httpHeaderCollection) Set(name, value string) {
	http.Header(h).Set(name, value)
}

// metadataCollection adapts gRPC metadata to Collection
type metadataCollection metadata.MD

func (md metadataCollection) Has(name string) bool {
	return hasFoldedKey(md, name)
}

func (md metadataCollection) Set(name, value string) {
	metadata.MD(md).Set(name, value)
}

func hasFoldedKey[V any](m map[string]V, name string) bool {
	for key := range m {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

// ClassifyHeaders reports which representation a header container uses.
// Maps keyed by strings are KindMapping, slices are KindPairList, and
// anything else, including nil, classifies as KindMapping.
func ClassifyHeaders(container any) HeaderKind {
	switch c := container.(type) {
	case http.Header, metadata.MD:
		return KindCollection
	case Collection:
		if isNilValue(c) {
			return KindMapping
		}
		return KindCollection
	}

	if reflect.ValueOf(container).Kind() == reflect.Slice {
		return KindPairList
	}
	return KindMapping
}

// headerStore is the has/set capability pair shared by every kind
type headerStore interface {
	has(name string) bool
	set(name, value string) bool
	container() any
}

// Headers is a working copy of a header container that keeps the original
// representation
type Headers struct {
	kind  HeaderKind
	store headerStore
}

// NormalizeHeaders prepares a container for mutation. Collections are used
// as-is. Maps with string keys and slices of pairs are shallow-copied into
// a value of the same type so the caller's value is left untouched.
// Anything else becomes an empty map[string]string.
func NormalizeHeaders(container any) *Headers {
	switch c := container.(type) {
	case http.Header:
		if c == nil {
			c = make(http.Header)
		}
		return &Headers{kind: KindCollection, store: collectionStore{httpHeaderCollection(c), c}}
	case metadata.MD:
		if c == nil {
			c = metadata.MD{}
		}
		return &Headers{kind: KindCollection, store: collectionStore{metadataCollection(c), c}}
	case Collection:
		if !isNilValue(c) {
			return &Headers{kind: KindCollection, store: collectionStore{c, c}}
		}
	}

	v := reflect.ValueOf(container)
	switch {
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		return &Headers{kind: KindMapping, store: copyMap(v)}
	case v.Kind() == reflect.Slice:
		return &Headers{kind: KindPairList, store: copyPairs(v)}
	default:
		return &Headers{kind: KindMapping, store: copyMap(reflect.ValueOf(map[string]string{}))}
	}
}

// Kind returns the container representation
func (h *Headers) Kind() HeaderKind {
	return h.kind
}

// Has reports whether a header with the given name exists, ignoring case
func (h *Headers) Has(name string) bool {
	return h.store.has(name)
}

// SetIfAbsent writes the header unless one with the same name already
// exists. It reports whether the value was written; a container whose
// element type cannot hold a string is left as it is.
func (h *Headers) SetIfAbsent(name, value string) bool {
	if h.store.has(name) {
		return false
	}
	return h.store.set(name, value)
}

// Container returns the mutated container in its original representation
func (h *Headers) Container() any {
	return h.store.container()
}

type collectionStore struct {
	collection Collection
	native     any
}

func (s collectionStore) has(name string) bool {
	return s.collection.Has(name)
}

func (s collectionStore) set(name, value string) bool {
	s.collection.Set(name, value)
	return true
}

func (s collectionStore) container() any {
	return s.native
}

// mapStore holds a copy of any map keyed by a string type
type mapStore struct {
	m reflect.Value
}

func copyMap(src reflect.Value) *mapStore {
	dst := reflect.MakeMapWithSize(src.Type(), src.Len()+2)
	iter := src.MapRange()
	for iter.Next() {
		dst.SetMapIndex(iter.Key(), iter.Value())
	}
	return &mapStore{m: dst}
}

func (s *mapStore) has(name string) bool {
	iter := s.m.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), name) {
			return true
		}
	}
	return false
}

func (s *mapStore) set(name, value string) bool {
	elem, ok := stringValue(s.m.Type().Elem(), value)
	if !ok {
		return false
	}
	s.m.SetMapIndex(reflect.ValueOf(name).Convert(s.m.Type().Key()), elem)
	return true
}

func (s *mapStore) container() any {
	return s.m.Interface()
}

// pairStore holds a copy of a slice whose elements are name/value pairs.
// Elements that are not pairs are kept but never match.
type pairStore struct {
	pairs reflect.Value
}

func copyPairs(src reflect.Value) *pairStore {
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len()+2)
	reflect.Copy(dst, src)
	return &pairStore{pairs: dst}
}

func (s *pairStore) has(name string) bool {
	for i := 0; i < s.pairs.Len(); i++ {
		pair := indirect(s.pairs.Index(i))
		if pair.Kind() != reflect.Slice && pair.Kind() != reflect.Array {
			continue
		}
		if pair.Len() == 0 {
			continue
		}
		key := indirect(pair.Index(0))
		if key.IsValid() && strings.EqualFold(fmt.Sprint(key.Interface()), name) {
			return true
		}
	}
	return false
}

func (s *pairStore) set(name, value string) bool {
	pair, ok := newPair(s.pairs.Type().Elem(), name, value)
	if !ok {
		return false
	}
	s.pairs = reflect.Append(s.pairs, pair)
	return true
}

func (s *pairStore) container() any {
	return s.pairs.Interface()
}

// newPair builds a two element pair of type t
func newPair(t reflect.Type, name, value string) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.Interface:
		pair := reflect.ValueOf([]any{name, value})
		return pair, pair.Type().AssignableTo(t)
	case reflect.Array, reflect.Slice:
		var pair reflect.Value
		if t.Kind() == reflect.Array {
			if t.Len() != 2 {
				return reflect.Value{}, false
			}
			pair = reflect.New(t).Elem()
		} else {
			pair = reflect.MakeSlice(t, 2, 2)
		}
		for i, s := range []string{name, value} {
			v, ok := stringValue(t.Elem(), s)
			if !ok {
				return reflect.Value{}, false
			}
			pair.Index(i).Set(v)
		}
		return pair, true
	default:
		return reflect.Value{}, false
	}
}

// stringValue converts s to a value of type t: a string type, an
// interface a string satisfies, or a slice of strings holding s
func stringValue(t reflect.Type, s string) (reflect.Value, bool) {
	v := reflect.ValueOf(s)
	switch t.Kind() {
	case reflect.String:
		return v.Convert(t), true
	case reflect.Interface:
		return v, v.Type().AssignableTo(t)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		values := reflect.MakeSlice(t, 1, 1)
		values.Index(0).Set(v.Convert(t.Elem()))
		return values, true
	default:
		return reflect.Value{}, false
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// isNilValue reports whether v is a typed nil such as a nil pointer
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return rv.Kind() == reflect.Invalid
	}
}
