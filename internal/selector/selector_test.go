package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInclude(t *testing.T) {
	s := New()

	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"internal/server/server.go", true},
		{"docs/README.md", true},
		{".git/config", false},
		{"node_modules/react/index.js", false},
		{"web/node_modules/react/index.js", false},
		{"pkg/vendor/lib.go", false},
		{"src/__pycache__/mod.cpython-312.pyc", false},
		{"./build/output.txt", false},
		{"vendored/lib.go", true},
		{"buildinfo.go", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Include(tt.path))
		})
	}
}

func TestIncludeWithExtraBlockedDirs(t *testing.T) {
	s := New("fixtures", " /testdata/ ")

	assert.False(t, s.Include("fixtures/big.json"))
	assert.False(t, s.Include("pkg/testdata/golden.txt"))
	assert.True(t, s.Include("pkg/fixture.go"))
	assert.True(t, s.SkipDir("testdata"))
}

func TestSkipDir(t *testing.T) {
	s := New()

	assert.True(t, s.SkipDir(".git"))
	assert.True(t, s.SkipDir("node_modules"))
	assert.False(t, s.SkipDir("internal"))
}

func TestDecodable(t *testing.T) {
	assert.True(t, Decodable([]byte("package main\n")))
	assert.True(t, Decodable([]byte("héllo wörld")))
	assert.True(t, Decodable(nil))
	assert.False(t, Decodable([]byte{0xff, 0xfe, 0x00, 0x41}))
	assert.False(t, Decodable([]byte("text\x00with nul")))
}
