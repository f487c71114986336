package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePostContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"Valid", "hello threads", false},
		{"Single Char", "x", false},
		{"Exactly Max", strings.Repeat("a", 500), false},
		{"Max In Runes", strings.Repeat("é", 500), false},
		{"Too Long", strings.Repeat("a", 501), true},
		{"Empty", "", true},
		{"Blank", "   \n\t", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostContent(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMediaURLs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		urls    []string
		wantErr bool
	}{
		{"None", nil, false},
		{"Https", []string{"https://cdn.example.com/a.jpg"}, false},
		{"Http", []string{"http://cdn.example.com/a.jpg"}, false},
		{"Relative", []string{"/a.jpg"}, true},
		{"No Scheme", []string{"cdn.example.com/a.jpg"}, true},
		{"Ftp", []string{"ftp://cdn.example.com/a.jpg"}, true},
		{"Javascript", []string{"javascript:alert(1)"}, true},
		{"Second Invalid", []string{"https://ok.example.com/1.jpg", "nope"}, true},
		{"Too Many", make([]string, MaxMediaURLs+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMediaURLs(tt.urls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAccessToken(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateAccessToken("THAAbc123"))
	assert.Error(t, ValidateAccessToken(""))
	assert.Error(t, ValidateAccessToken("abc def"))
	assert.Error(t, ValidateAccessToken(strings.Repeat("a", 4097)))
}
