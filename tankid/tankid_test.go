package tankid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanklink/tankops/tankid"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "a1", "A1"},
		{"hyphenated", "A-01", "A01"},
		{"underscore and space", "a_0 1", "A01"},
		{"full width", "Ａ０１", "A01"},
		{"long dash", "Aー01", "A01"},
		{"empty", "", ""},
		{"pass through symbols", "A#1", "A#1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tankid.Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, id := range []string{"a-01", "Ａ１２", "B_3", "OK-D", "漏れ", ""} {
		once := tankid.Normalize(id)
		assert.Equal(t, once, tankid.Normalize(once), "normalize must be idempotent for %q", id)
	}
}

func TestMatch(t *testing.T) {
	// Numeric-suffix tolerance: "A1" and "A-01" are the same physical tank.
	assert.True(t, tankid.Match("A1", "A-01"))
	assert.True(t, tankid.Match("a-1", "Ａ０１"))
	assert.True(t, tankid.Match("B12", "B12"))

	assert.False(t, tankid.Match("A1", "B1"))
	assert.False(t, tankid.Match("A1", "A2"))
	assert.False(t, tankid.Match("", "A1"))
	assert.False(t, tankid.Match("A1", ""))
}

func TestFormatDisplay(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"A1", "A-01"},
		{"A12", "A-12"},
		{"a-1", "A-01"},
		{"Ｂ０３", "B-03"},
		{"AOK", "A-OK"},
		{"A#1", "A#1"}, // unrecognized shape passes through
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tankid.FormatDisplay(tc.in), "FormatDisplay(%q)", tc.in)
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "A", tankid.Prefix("A-01"))
	assert.Equal(t, "AB", tankid.Prefix("ab12"))
	assert.Equal(t, "", tankid.Prefix("12"))
}
