// browser/parser/css_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to build expected declarations concisely.
func d(prop, val string, important bool) Declaration {
	return Declaration{Property: Property(prop), Value: val, Important: important}
}

func TestParseRules(t *testing.T) {
	input := `
		/* leading comment */
		.hidden { display: none }
		div > p.note, #main[data-x="a{b}"] {
			visibility: hidden;
			cursor: pointer !important;
		}
		@media (max-width: 600px) { .mobile { display: block; } }
		@import url("x.css");
		span{COLOR:red;}
	`
	sheet := NewParser(input).Parse()
	require.Len(t, sheet.Rules, 3)

	assert.Equal(t, ".hidden", sheet.Rules[0].Selector)
	assert.Equal(t, []Declaration{d("display", "none", false)}, sheet.Rules[0].Declarations)

	assert.Equal(t, `div > p.note, #main[data-x="a{b}"]`, sheet.Rules[1].Selector)
	assert.Equal(t, []Declaration{
		d("visibility", "hidden", false),
		d("cursor", "pointer", true),
	}, sheet.Rules[1].Declarations)

	assert.Equal(t, "span", sheet.Rules[2].Selector)
	assert.Equal(t, []Declaration{d("color", "red", false)}, sheet.Rules[2].Declarations)
}

func TestParseSkipsEmptyAndMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rules int
	}{
		{"Empty", "", 0},
		{"Empty Block", "div {}", 0},
		{"No Selector", "{ display: none }", 0},
		{"Unterminated", "div { display: none", 1},
		{"Missing Colon", "div { display none; color: red }", 1},
		{"Only At Rule", "@font-face { font-family: x; }", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := NewParser(tt.input).Parse()
			assert.Len(t, sheet.Rules, tt.rules)
		})
	}
}

func TestParseInline(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Declaration
	}{
		{"Single", "display:none", []Declaration{d("display", "none", false)}},
		{"Multiple", "color: red; outline: 2px solid #f00;", []Declaration{
			d("color", "red", false),
			d("outline", "2px solid #f00", false),
		}},
		{"Important", "visibility: hidden !important", []Declaration{d("visibility", "hidden", true)}},
		{"Function Value", "background: url(data:image/png;base64,AAA); cursor: pointer", []Declaration{
			d("background", "url(data:image/png;base64,AAA)", false),
			d("cursor", "pointer", false),
		}},
		{"Stray Semicolons", ";;display: block;;", []Declaration{d("display", "block", false)}},
		{"Garbage", "*zoom: 1; display: inline", []Declaration{d("display", "inline", false)}},
		{"Empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseInline(tt.input))
		})
	}
}
