package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "n1", TrimQuotes(`"n1"`))
	assert.Equal(t, "n1", TrimQuotes("n1"))
	assert.Equal(t, "", TrimQuotes(`""`))
}

func TestFixEscapeQuotes(t *testing.T) {
	assert.Equal(t, `say "hi"`, FixEscapeQuotes(`say ""hi""`))
}

func TestCleanArg(t *testing.T) {
	tests := map[string]string{
		` "Bias/Offset" `: "Bias/Offset",
		`42.5`:            "42.5",
		`"a ""b"""`:       `a "b`,
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanArg(in), in)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "clog_test-1", SanitizeName("clog test-1"))
	assert.Equal(t, "a_b_c", SanitizeName("a/b.c"))
	assert.Equal(t, "run", SanitizeName("  "))
}

func TestSimDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, SimDuration(1.5))
}
