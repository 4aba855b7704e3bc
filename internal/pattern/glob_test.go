package pattern

import "testing"

func TestGlob(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{
			name:    "double star matches any depth",
			pattern: "**/node_modules/**",
			path:    "node_modules/lib/index.js",
			want:    true,
		},
		{
			name:    "double star matches nested depth",
			pattern: "**/node_modules/**",
			path:    "packages/app/node_modules/lib/index.js",
			want:    true,
		},
		{
			name:    "double star does not match sibling",
			pattern: "**/node_modules/**",
			path:    "src/modules/index.js",
			want:    false,
		},
		{
			name:    "single star stays in one segment",
			pattern: "src/*.ts",
			path:    "src/app.ts",
			want:    true,
		},
		{
			name:    "single star does not cross separator",
			pattern: "src/*.ts",
			path:    "src/nested/app.ts",
			want:    false,
		},
		{
			name:    "trailing double star matches subtree",
			pattern: "src/**",
			path:    "src/a/b/c.go",
			want:    true,
		},
		{
			name:    "extension glob at any depth",
			pattern: "**/*.go",
			path:    "internal/scan/engine.go",
			want:    true,
		},
		{
			name:    "extension glob matches root file",
			pattern: "**/*.go",
			path:    "main.go",
			want:    true,
		},
		{
			name:    "question mark matches one char",
			pattern: "?at.txt",
			path:    "cat.txt",
			want:    true,
		},
		{
			name:    "question mark needs exactly one char",
			pattern: "?at.txt",
			path:    "at.txt",
			want:    false,
		},
		{
			name:    "question mark does not match separator",
			pattern: "a?b.txt",
			path:    "a/b.txt",
			want:    false,
		},
		{
			name:    "minified asset glob",
			pattern: "**/*.min.js",
			path:    "assets/vendor/jquery.min.js",
			want:    true,
		},
		{
			name:    "literal dot is not a wildcard",
			pattern: "*.go",
			path:    "maingo",
			want:    false,
		},
		{
			name:    "exact path",
			pattern: "docs/readme.md",
			path:    "docs/readme.md",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Glob(tt.pattern, tt.path); got != tt.want {
				t.Errorf("Glob(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestGlobAny(t *testing.T) {
	patterns := []string{"**/node_modules/**", "**/*.min.js"}

	if !GlobAny(patterns, "node_modules/a.js") {
		t.Error("expected node_modules path to match")
	}
	if !GlobAny(patterns, "dist/app.min.js") {
		t.Error("expected minified asset to match")
	}
	if GlobAny(patterns, "src/app.js") {
		t.Error("did not expect plain source path to match")
	}
	if GlobAny(nil, "src/app.js") {
		t.Error("empty pattern list must match nothing")
	}
}
