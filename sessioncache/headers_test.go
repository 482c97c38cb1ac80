package sessioncache

import (
	"net/http"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/grpc/metadata"
)

// caseFoldedSet is a Collection that is not one of the built-in adapters
type caseFoldedSet struct {
	values map[string]string
	sets   int
}

func (c *caseFoldedSet) Has(name string) bool {
	_, ok := c.values[strings.ToLower(name)]
	return ok
}

func (c *caseFoldedSet) Set(name, value string) {
	c.sets++
	c.values[strings.ToLower(name)] = value
}

func TestClassifyHeaders(t *testing.T) {
	tests := []struct {
		name      string
		container any
		want      HeaderKind
	}{
		{"nil", nil, KindMapping},
		{"string", "x-session-id: 1", KindMapping},
		{"map", map[string]string{"a": "b"}, KindMapping},
		{"pair list", [][2]string{{"a", "b"}}, KindPairList},
		{"http header", http.Header{}, KindCollection},
		{"grpc metadata", metadata.MD{}, KindCollection},
		{"custom collection", &caseFoldedSet{values: map[string]string{}}, KindCollection},
		{"nil custom collection", (*caseFoldedSet)(nil), KindMapping},
		{"json object", map[string]any{"a": "b"}, KindMapping},
		{"multi-value map", map[string][]string{"a": {"b"}}, KindMapping},
		{"string pairs", [][]string{{"a", "b"}}, KindPairList},
		{"json array", []any{[]any{"a", "b"}}, KindPairList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyHeaders(tt.container); got != tt.want {
				t.Errorf("ClassifyHeaders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderKind_String(t *testing.T) {
	tests := []struct {
		kind HeaderKind
		want string
	}{
		{KindMapping, "object"},
		{KindPairList, "array"},
		{KindCollection, "headers"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("HeaderKind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestNormalizeHeaders_Unrecognized(t *testing.T) {
	for _, container := range []any{nil, 42, "text", struct{}{}, map[int]string{1: "a"}, (*caseFoldedSet)(nil)} {
		h := NormalizeHeaders(container)
		if h.Kind() != KindMapping {
			t.Errorf("NormalizeHeaders(%v) kind = %v, want %v", container, h.Kind(), KindMapping)
		}
		got, ok := h.Container().(map[string]string)
		if !ok || len(got) != 0 {
			t.Errorf("NormalizeHeaders(%v) container = %#v, want empty map", container, h.Container())
		}
	}
}

func TestNormalizeHeaders_DecodedContainers(t *testing.T) {
	tests := []struct {
		name      string
		container func() any
		kind      HeaderKind
		present   bool
		want      any
	}{
		{
			name: "json object",
			container: func() any {
				return map[string]any{"Authorization": "Bearer x", "X-Session-Id": "mine"}
			},
			kind:    KindMapping,
			present: true,
			want:    map[string]any{"Authorization": "Bearer x", "X-Session-Id": "mine", "session_id": "sess_1"},
		},
		{
			name: "multi-value map",
			container: func() any {
				return map[string][]string{"X-SESSION-ID": {"mine"}}
			},
			kind:    KindMapping,
			present: true,
			want:    map[string][]string{"X-SESSION-ID": {"mine"}, "session_id": {"sess_1"}},
		},
		{
			name: "string pairs",
			container: func() any {
				return [][]string{{"x-Session-Id", "mine"}}
			},
			kind:    KindPairList,
			present: true,
			want:    [][]string{{"x-Session-Id", "mine"}, {"session_id", "sess_1"}},
		},
		{
			name: "json array",
			container: func() any {
				return []any{[]any{"X-Session-ID", "mine"}, "stray"}
			},
			kind:    KindPairList,
			present: true,
			want:    []any{[]any{"X-Session-ID", "mine"}, "stray", []any{"session_id", "sess_1"}},
		},
		{
			name: "numeric values",
			container: func() any {
				return map[string]int{"retries": 1}
			},
			kind: KindMapping,
			want: map[string]int{"retries": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.container()
			h := NormalizeHeaders(original)
			if h.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", h.Kind(), tt.kind)
			}
			if got := h.Has("x-session-id"); got != tt.present {
				t.Errorf("Has(x-session-id) = %v, want %v", got, tt.present)
			}

			h.SetIfAbsent("x-session-id", "sess_1")
			h.SetIfAbsent("session_id", "sess_1")

			if !reflect.DeepEqual(h.Container(), tt.want) {
				t.Errorf("Container() = %#v, want %#v", h.Container(), tt.want)
			}
			if !reflect.DeepEqual(original, tt.container()) {
				t.Errorf("original modified: %#v", original)
			}
		})
	}
}

func TestNormalizeHeaders_NilCollection(t *testing.T) {
	var collection *caseFoldedSet
	h := NormalizeHeaders(collection)

	if h.Kind() != KindMapping {
		t.Errorf("Kind() = %v, want %v", h.Kind(), KindMapping)
	}
	if h.Has("x-session-id") {
		t.Error("Has() = true on an empty mapping")
	}
	if !h.SetIfAbsent("x-session-id", "sess_1") {
		t.Error("SetIfAbsent() = false, want true")
	}
	want := map[string]string{"x-session-id": "sess_1"}
	if !reflect.DeepEqual(h.Container(), want) {
		t.Errorf("Container() = %#v, want %#v", h.Container(), want)
	}
}

func TestNormalizeHeaders_MappingIsCopied(t *testing.T) {
	original := map[string]string{"Authorization": "Bearer token"}
	h := NormalizeHeaders(original)
	h.SetIfAbsent("x-session-id", "sess_1")

	if len(original) != 1 {
		t.Errorf("original map modified: %v", original)
	}
	got := h.Container().(map[string]string)
	want := map[string]string{"Authorization": "Bearer token", "x-session-id": "sess_1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Container() = %v, want %v", got, want)
	}
}

func TestNormalizeHeaders_PairListIsCopied(t *testing.T) {
	original := [][2]string{{"Accept", "application/json"}}
	h := NormalizeHeaders(original)
	h.SetIfAbsent("session_id", "sess_1")

	if len(original) != 1 {
		t.Errorf("original pair list modified: %v", original)
	}
	got := h.Container().([][2]string)
	want := [][2]string{{"Accept", "application/json"}, {"session_id", "sess_1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Container() = %v, want %v", got, want)
	}
}

func TestNormalizeHeaders_CollectionsAreLive(t *testing.T) {
	header := http.Header{}
	NormalizeHeaders(header).SetIfAbsent("x-session-id", "sess_1")
	if got := header.Get("x-session-id"); got != "sess_1" {
		t.Errorf("http.Header x-session-id = %q, want %q", got, "sess_1")
	}

	md := metadata.MD{}
	NormalizeHeaders(md).SetIfAbsent("x-session-id", "sess_1")
	if got := md.Get("x-session-id"); len(got) != 1 || got[0] != "sess_1" {
		t.Errorf("metadata x-session-id = %v, want [sess_1]", got)
	}

	custom := &caseFoldedSet{values: map[string]string{}}
	h := NormalizeHeaders(custom)
	h.SetIfAbsent("X-Session-Id", "sess_1")
	if custom.values["x-session-id"] != "sess_1" {
		t.Errorf("custom collection values = %v", custom.values)
	}
	if h.Container() != custom {
		t.Error("Container() did not return the caller's collection")
	}
}

func TestHeaders_SetIfAbsentKeepsExisting(t *testing.T) {
	tests := []struct {
		name      string
		container func() any
		count     func(any) int
		value     func(any) string
	}{
		{
			name:      "mapping",
			container: func() any { return map[string]string{"X-Session-ID": "mine"} },
			count:     func(c any) int { return len(c.(map[string]string)) },
			value:     func(c any) string { return c.(map[string]string)["X-Session-ID"] },
		},
		{
			name:      "pair list",
			container: func() any { return [][2]string{{"X-SESSION-ID", "mine"}} },
			count:     func(c any) int { return len(c.([][2]string)) },
			value:     func(c any) string { return c.([][2]string)[0][1] },
		},
		{
			name: "http header",
			container: func() any {
				h := http.Header{}
				h.Set("X-Session-Id", "mine")
				return h
			},
			count: func(c any) int { return len(c.(http.Header)["X-Session-Id"]) },
			value: func(c any) string { return c.(http.Header).Get("x-session-id") },
		},
		{
			name:      "non-canonical http header key",
			container: func() any { return http.Header{"x-session-id": {"mine"}} },
			count:     func(c any) int { return len(c.(http.Header)) },
			value:     func(c any) string { return c.(http.Header)["x-session-id"][0] },
		},
		{
			name:      "grpc metadata",
			container: func() any { return metadata.Pairs("x-session-id", "mine") },
			count:     func(c any) int { return len(c.(metadata.MD).Get("x-session-id")) },
			value:     func(c any) string { return c.(metadata.MD).Get("x-session-id")[0] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NormalizeHeaders(tt.container())
			if !h.Has("x-session-id") {
				t.Fatal("Has(x-session-id) = false, want true")
			}
			if h.SetIfAbsent("x-session-id", "sess_new") {
				t.Error("SetIfAbsent() = true, want false")
			}

			got := h.Container()
			if n := tt.count(got); n != 1 {
				t.Errorf("entry count = %d, want 1", n)
			}
			if v := tt.value(got); v != "mine" {
				t.Errorf("value = %q, want %q", v, "mine")
			}
		})
	}
}

func TestHeaders_PairListPreservesOrder(t *testing.T) {
	h := NormalizeHeaders([][2]string{{"b", "2"}, {"a", "1"}})
	h.SetIfAbsent("x-session-id", "s")
	h.SetIfAbsent("session_id", "s")

	want := [][2]string{{"b", "2"}, {"a", "1"}, {"x-session-id", "s"}, {"session_id", "s"}}
	if got := h.Container(); !reflect.DeepEqual(got, want) {
		t.Errorf("Container() = %v, want %v", got, want)
	}
}
