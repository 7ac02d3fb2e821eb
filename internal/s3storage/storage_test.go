package s3storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\bob\scan.png`: "scan.png",
		"":                      "upload",
		"..":                    "upload",
		"  notes.txt ":          "notes.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), "SafeName(%q)", in)
	}
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey("contract.pdf")
	b := ObjectKey("contract.pdf")

	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.True(t, strings.HasSuffix(a, "/contract.pdf"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, "contract.pdf", FileName(a))
}
