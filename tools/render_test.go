package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	methodmcp "github.com/methodcrm/method-mcp"
)

func TestJSONEnvelope(t *testing.T) {
	out := jsonEnvelope(map[string]any{"Id": 1}, "Record created successfully")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, true, parsed["success"])
	assert.Equal(t, "Record created successfully", parsed["message"])
	assert.Equal(t, map[string]any{"Id": float64(1)}, parsed["data"])

	out = jsonEnvelope(nil, "")
	parsed = nil
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.NotContains(t, parsed, "message")
}

func TestJSONFailure(t *testing.T) {
	out := jsonFailure("file too large")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, false, parsed["success"])
	assert.Equal(t, "file too large", parsed["error"])
	assert.NotContains(t, parsed, "data")
}

func TestParseList(t *testing.T) {
	records, total, hasNext := parseList([]byte(`{"value":[{"Id":1},{"Id":2}],"count":2,"nextLink":"next"}`))
	assert.Len(t, records, 2)
	assert.Nil(t, total)
	assert.True(t, hasNext)

	records, total, hasNext = parseList([]byte(`{"value":[],"total":40}`))
	assert.Empty(t, records)
	require.NotNil(t, total)
	assert.Equal(t, 40, *total)
	assert.False(t, hasNext)

	// The files endpoint answers a bare array.
	records, total, hasNext = parseList([]byte(`[{"id":"f1"},{"id":"f2"}]`))
	assert.Len(t, records, 2)
	assert.Nil(t, total)
	assert.False(t, hasNext)

	records, _, _ = parseList([]byte(`not json`))
	assert.Nil(t, records)
}

func TestPageInfo(t *testing.T) {
	// Unknown total: a full page means more records.
	p := pageInfo(nil, 20, 0, 20, false)
	assert.True(t, p.HasMore)
	require.NotNil(t, p.NextOffset)
	assert.Equal(t, 20, *p.NextOffset)

	// Unknown total, short page: that was the last one.
	p = pageInfo(nil, 7, 20, 20, false)
	assert.False(t, p.HasMore)
	assert.Nil(t, p.NextOffset)

	// Known total overrides the heuristic.
	total := 25
	p = pageInfo(&total, 20, 0, 20, false)
	assert.True(t, p.HasMore)
	p = pageInfo(&total, 5, 20, 20, false)
	assert.False(t, p.HasMore)

	// A next link wins over everything.
	p = pageInfo(nil, 3, 0, 20, true)
	assert.True(t, p.HasMore)
}

func TestMarkdownTable(t *testing.T) {
	records := []map[string]any{
		{"Name": "Acme", "IsActive": true},
		{"Name": "Pipe|Corp", "IsActive": false},
	}
	out := markdownTable(records, []string{"Name", "IsActive"}, "Customers")

	assert.Contains(t, out, "## Customers")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Pipe\\|Corp", "pipes must be escaped inside table cells")
	assert.Contains(t, out, "Yes")
	assert.Contains(t, out, "No")

	assert.Equal(t, "No records found.", markdownTable(nil, nil, "Empty"))
}

func TestMarkdownList(t *testing.T) {
	records := []map[string]any{
		{"Name": "Daily sync", "Enabled": true, "Id": "r1"},
	}
	out := markdownList(records, "Name", []string{"Id", "Enabled"}, "Event Routines")

	assert.Contains(t, out, "# Event Routines")
	assert.Contains(t, out, "## Daily sync")
	assert.Contains(t, out, "- **Id**: r1")
	assert.Contains(t, out, "- **Enabled**: Yes")
}

func TestPaginationFooter(t *testing.T) {
	next := 40
	total := 100
	out := paginationFooter(&methodmcp.Pagination{
		Total: &total, Count: 20, Offset: 20, Limit: 20, HasMore: true, NextOffset: &next,
	})
	assert.Contains(t, out, "Showing records 21-40 of 100")
	assert.Contains(t, out, "Next offset: 40")

	out = paginationFooter(nil)
	assert.Empty(t, out)
}

func TestClampPage(t *testing.T) {
	top, skip := clampPage(0, -5)
	assert.Equal(t, defaultPageSize, top)
	assert.Equal(t, 0, skip)

	top, _ = clampPage(500, 0)
	assert.Equal(t, maxPageSize, top)

	top, skip = clampPage(33, 66)
	assert.Equal(t, 33, top)
	assert.Equal(t, 66, skip)
}

func TestDispositionFilename(t *testing.T) {
	assert.Equal(t, "contract.pdf", dispositionFilename(`attachment; filename="contract.pdf"`))
	assert.Equal(t, "a.txt", dispositionFilename(`attachment; filename=a.txt; size=3`))
	assert.Equal(t, "", dispositionFilename("attachment"))
	assert.Equal(t, "", dispositionFilename(""))
}
