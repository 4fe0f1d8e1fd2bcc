package idgen

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[a-f0-9]{16}$`)

func TestNodeIDDeterministic(t *testing.T) {
	a := NodeID("/s.jsonl", "e1", "e10")
	b := NodeID("/s.jsonl", "e1", "e10")
	if a != b {
		t.Fatalf("NodeID not deterministic: %q != %q", a, b)
	}
	if !hexID.MatchString(a) {
		t.Fatalf("NodeID %q does not match ^[a-f0-9]{16}$", a)
	}
}

func TestNodeIDDistinguishesBoundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b [3]string
	}{
		{"different session", [3]string{"/s1.jsonl", "e1", "e2"}, [3]string{"/s2.jsonl", "e1", "e2"}},
		{"different start", [3]string{"/s.jsonl", "e1", "e2"}, [3]string{"/s.jsonl", "e9", "e2"}},
		{"different end", [3]string{"/s.jsonl", "e1", "e2"}, [3]string{"/s.jsonl", "e1", "e9"}},
		{"boundary shift not ambiguous", [3]string{"ab", "c", ""}, [3]string{"a", "bc", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idA := NodeID(tt.a[0], tt.a[1], tt.a[2])
			idB := NodeID(tt.b[0], tt.b[1], tt.b[2])
			if idA == idB {
				t.Fatalf("expected distinct IDs for %v vs %v, got %q for both", tt.a, tt.b, idA)
			}
		})
	}
}

func TestOpaqueIDPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"lesson", LessonID, PrefixLesson},
		{"quirk", QuirkID, PrefixQuirk},
		{"tool error", ToolErrorID, PrefixToolError},
		{"decision", DecisionID, PrefixDecision},
		{"edge", EdgeID, PrefixEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			if len(id) <= len(tt.prefix) || id[:len(tt.prefix)] != tt.prefix {
				t.Fatalf("expected %q to start with %q", id, tt.prefix)
			}
		})
	}
}
