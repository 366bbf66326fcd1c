package frontend

import (
	"io/fs"
	"strings"
	"testing"
)

func TestAssetsContainShell(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		if _, err := fs.Stat(Assets, name); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	index, err := fs.ReadFile(Assets, "index.html")
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "app.js") {
		t.Fatalf("index does not load app.js")
	}
}
