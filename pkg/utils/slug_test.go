package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Acme Corp", "acme-corp"},
		{"punctuation collapses", "Fran's   Agency!!", "fran-s-agency"},
		{"already a slug", "acme-corp", "acme-corp"},
		{"leading and trailing junk", "  --Acme--  ", "acme"},
		{"digits kept", "Plan 2 Launch", "plan-2-launch"},
		{"unicode stripped", "Café Ümlaut", "caf-mlaut"},
		{"empty", "", ""},
		{"only junk", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}
