package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLabelsShapes(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"named keys", "labels.json", `{"first":["a0","a1","a2","a3","a4","a5"],"second":["b0","b1","b2","b3","b4","b5"],"third":["c0","c1","c2","c3","c4","c5"]}`},
		{"upper case keys", "labels.json", `{"FIRST":["a0","a1","a2","a3","a4","a5"],"Second":["b0","b1","b2","b3","b4","b5"],"third":["c0","c1","c2","c3","c4","c5"]}`},
		{"index keys", "labels.json", `{"0":["a0","a1","a2","a3","a4","a5"],"1":["b0","b1","b2","b3","b4","b5"],"2":["c0","c1","c2","c3","c4","c5"]}`},
		{"array", "labels.json", `[["a0","a1","a2","a3","a4","a5"],["b0","b1","b2","b3","b4","b5"],["c0","c1","c2","c3","c4","c5"]]`},
		{"javascript", "labels.js", "const slotOptions = [[\"a0\",\"a1\",\"a2\",\"a3\",\"a4\",\"a5\"],[\"b0\",\"b1\",\"b2\",\"b3\",\"b4\",\"b5\"],[\"c0\",\"c1\",\"c2\",\"c3\",\"c4\",\"c5\"]];\n"},
		{"yaml", "labels.yaml", "first: [a0, a1, a2, a3, a4, a5]\nsecond: [b0, b1, b2, b3, b4, b5]\nthird: [c0, c1, c2, c3, c4, c5]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := LoadLabels(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for s, prefix := range []string{"a", "b", "c"} {
				text, ok := labels.Text(s, 4)
				if !ok || text != prefix+"4" {
					t.Errorf("switch %d digit 4: got %q, %v", s, text, ok)
				}
			}
		})
	}
}

func TestLoadLabelsCoercesValues(t *testing.T) {
	labels, err := LoadLabels(writeFile(t, "labels.json", `[[1,2,3,4,5,6],["a","b","c","d","e","f"],[true,false,"x","y","z","w"]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text, _ := labels.Text(0, 0); text != "1" {
		t.Errorf("expected \"1\", got %q", text)
	}
	if text, _ := labels.Text(2, 1); text != "false" {
		t.Errorf("expected \"false\", got %q", text)
	}
}

func TestLoadLabelsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"short list", `{"first":["a"],"second":["b0","b1","b2","b3","b4","b5"],"third":["c0","c1","c2","c3","c4","c5"]}`},
		{"missing key", `{"first":["a0","a1","a2","a3","a4","a5"],"second":["b0","b1","b2","b3","b4","b5"]}`},
		{"two lists", `[["a0","a1","a2","a3","a4","a5"],["b0","b1","b2","b3","b4","b5"]]`},
		{"not json", `labels: nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLabels(writeFile(t, "labels.json", tt.content))
			var loadErr *LabelLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected LabelLoadError, got %v", err)
			}
		})
	}
}

func TestLabelsNilFallback(t *testing.T) {
	var labels *Labels
	if _, ok := labels.Text(0, 0); ok {
		t.Error("nil labels should have no entry")
	}
}

func TestLoadLabelsBlankEntries(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "labels.json", `{"first":[null,"","b","  ","d","e"],"second":["b0","b1","b2","b3","b4","b5"],"third":["c0","c1","c2","c3","c4","c5"]}`},
		{"yaml", "labels.yaml", "first: [~, \"\", b, \"  \", d, e]\nsecond: [b0, b1, b2, b3, b4, b5]\nthird: [c0, c1, c2, c3, c4, c5]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := LoadLabels(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, digit := range []int{0, 1, 3} {
				if text, ok := labels.Text(0, digit); ok {
					t.Errorf("digit %d: expected no label, got %q", digit, text)
				}
			}
			if text, ok := labels.Text(0, 2); !ok || text != "b" {
				t.Errorf("digit 2: got %q, %v", text, ok)
			}
			if text, ok := labels.Text(1, 0); !ok || text != "b0" {
				t.Errorf("second switch: got %q, %v", text, ok)
			}
		})
	}
}

func TestFindLabels(t *testing.T) {
	good := writeFile(t, "labels.json", `[["a0","a1","a2","a3","a4","a5"],["b0","b1","b2","b3","b4","b5"],["c0","c1","c2","c3","c4","c5"]]`)
	bad := writeFile(t, "labels.json", `{"first": []}`)

	if labels := FindLabels([]string{"/nonexistent/labels.json", good}); labels == nil || labels.Path != good {
		t.Errorf("expected labels from %s, got %+v", good, labels)
	}
	// a malformed first match discards labels for the whole run
	if labels := FindLabels([]string{bad, good}); labels != nil {
		t.Errorf("expected no labels, got %+v", labels)
	}
	if labels := FindLabels(nil); labels != nil {
		t.Errorf("expected no labels, got %+v", labels)
	}
}
