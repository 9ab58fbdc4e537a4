package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap/internal/cmd/table"
	"github.com/agentstation/upcmap/pkg/errors"
)

type sample struct {
	SourceID string `json:"source_id"`
	Limit    int    `json:"limit,omitempty"`
	Plain    string
	internal string
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestIsTable(t *testing.T) {
	assert.True(t, FormatTable.IsTable())
	assert.True(t, FormatWide.IsTable())
	assert.True(t, Format("").IsTable())
	assert.False(t, FormatJSON.IsTable())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, map[string]int{"a": 1}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got["a"])
	assert.Contains(t, buf.String(), "\n  ")
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Codes []string `yaml:"codes"`
	}{Codes: []string{"1", "2"}}
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, data))
	assert.Contains(t, buf.String(), "codes:")
	assert.Contains(t, buf.String(), "- ")
}

func TestTableFormatterData(t *testing.T) {
	var buf bytes.Buffer
	data := table.Data{
		Headers:         []string{"Code", "Name"},
		Rows:            [][]string{{"0041196910759", "Tofu"}},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight},
	}
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "0041196910759")
	assert.Contains(t, out, "Tofu")
	assert.Contains(t, strings.ToUpper(out), "CODE")
}

func TestTableFormatterReflectSlice(t *testing.T) {
	td, ok := reflectTableData([]sample{{SourceID: "off", Limit: 2, Plain: "x", internal: "skipped"}})
	require.True(t, ok)
	assert.Equal(t, []string{"Source Id", "Limit", "Plain"}, td.Headers)
	assert.Equal(t, [][]string{{"off", "2", "x"}}, td.Rows)
}

func TestTableFormatterReflectStruct(t *testing.T) {
	td, ok := reflectTableData(&sample{SourceID: "off"})
	require.True(t, ok)
	assert.Equal(t, []string{"Property", "Value"}, td.Headers)
	assert.Len(t, td.Rows, 3)
	assert.Equal(t, []string{"Source Id", "off"}, td.Rows[0])
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, map[string]string{"k": "v"}))
	assert.JSONEq(t, `{"k":"v"}`, buf.String())

	_, ok := reflectTableData([]string{"a"})
	assert.False(t, ok)
	_, ok = reflectTableData((*sample)(nil))
	assert.False(t, ok)
}

func TestPrint(t *testing.T) {
	rows := func(wide bool) table.Data {
		if wide {
			return table.Data{Headers: []string{"Code", "Extra"}, Rows: [][]string{{"1", "wide-only"}}}
		}
		return table.Data{Headers: []string{"Code"}, Rows: [][]string{{"1"}}}
	}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatWide, nil, rows))
	assert.Contains(t, buf.String(), "wide-only")

	buf.Reset()
	require.NoError(t, Print(&buf, FormatTable, nil, rows))
	assert.NotContains(t, buf.String(), "wide-only")

	buf.Reset()
	require.NoError(t, Print(&buf, FormatJSON, map[string]string{"code": "1"}, rows))
	assert.JSONEq(t, `{"code":"1"}`, buf.String())
}
