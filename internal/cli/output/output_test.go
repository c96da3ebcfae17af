package output

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{" markdown ", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"empty piped", "", false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit json on terminal", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_Buffer(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(1, "ANOVA")
	r.KeyValue("F-statistic", "9.26")
	r.Success("wrote plot")
	r.Warning("slow target")

	assert.Equal(t, "# ANOVA\n\n**F-statistic:** 9.26\n✓ wrote plot\n", out.String())
	assert.Equal(t, "! slow target\n", errOut.String())
}

func TestRenderer_TextWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeText)

	r.Header(1, "ANOVA")
	r.KeyValue("Rows", r.Count(1234567))
	r.Muted("done")

	assert.False(t, ansi.MatchString(out.String()), "no ANSI codes without a terminal")
	assert.Equal(t, "ANOVA\nRows: 1,234,567\ndone\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	newTable := func() table.Writer {
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"column", "type"})
		tw.AppendRow(table.Row{"species", "BYTE_ARRAY"})
		return tw
	}

	var md bytes.Buffer
	NewRendererWithTTY(&md, &bytes.Buffer{}, false, ModeMarkdown).Table(newTable())
	assert.Contains(t, md.String(), "| column | type |")

	var text bytes.Buffer
	NewRendererWithTTY(&text, &bytes.Buffer{}, false, ModeText).Table(newTable())
	assert.Contains(t, text.String(), "┌")
	assert.Contains(t, text.String(), "species")
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]float64{"f_statistic": 1.5}))
	assert.Equal(t, "{\n  \"f_statistic\": 1.5\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Row groups", FormatHeader(2, "Row groups"))
	assert.Equal(t, "###### deep", FormatHeader(9, "deep"))
	assert.Equal(t, "# top", FormatHeader(0, "top"))
	assert.Equal(t, "**Rows:** 10", FormatKeyValue("Rows", "10"))
}
