// render.go
// ---------
// Response rendering shared by all tools. Every tool answers either a
// JSON envelope ({"success": ..., "data"/"error": ...}) or a Markdown
// document, selected by the caller through the response_format argument.

package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mark3labs/mcp-go/mcp"

	methodmcp "github.com/methodcrm/method-mcp"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"

	defaultPageSize = 20
	maxPageSize     = 100
)

// jsonEnvelope wraps data in the standard success envelope. message is
// optional and omitted when empty.
func jsonEnvelope(data any, message string) string {
	resp := map[string]any{"success": true}
	if message != "" {
		resp["message"] = message
	}
	resp["data"] = data
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success": false, "error": %q}`, err.Error())
	}
	return string(out)
}

// jsonFailure wraps an error message in the standard failure envelope.
func jsonFailure(message string) string {
	out, _ := json.MarshalIndent(map[string]any{
		"success": false,
		"error":   message,
	}, "", "  ")
	return string(out)
}

// failureResult converts an API failure into an MCP error result. The
// classified kind and suggestion are preserved in the message so agents
// can decide whether to retry, fix input, or give up.
func failureResult(f *methodmcp.Failure) *mcp.CallToolResult {
	return mcp.NewToolResultError(f.Error())
}

// textResult is a convenience wrapper for a plain text tool result.
func textResult(s string) *mcp.CallToolResult {
	return mcp.NewToolResultText(s)
}

// listEnvelope is the shape of Method CRM list responses. The files
// endpoint returns a bare JSON array instead, which parseList also
// accepts.
type listEnvelope struct {
	Value    []map[string]any `json:"value"`
	Count    *int             `json:"count"`
	Total    *int             `json:"total"`
	NextLink *string          `json:"nextLink"`
}

// parseList extracts records and paging hints from a list response body.
// total is nil when the API does not report one, which is the common
// case for the tables endpoint.
func parseList(raw []byte) (records []map[string]any, total *int, hasNext bool) {
	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Value != nil {
		return env.Value, env.Total, env.NextLink != nil && *env.NextLink != ""
	}
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil, false
	}
	return nil, nil, false
}

// pageInfo builds pagination metadata for a single page of results.
// When the API reports a next link or a total, those determine has_more;
// otherwise a full page is taken to mean more records exist.
func pageInfo(total *int, count, offset, limit int, hasNext bool) *methodmcp.Pagination {
	p := &methodmcp.Pagination{
		Total:  total,
		Count:  count,
		Offset: offset,
		Limit:  limit,
	}
	switch {
	case hasNext:
		p.HasMore = true
	case total != nil:
		p.HasMore = *total > offset+count
	default:
		p.HasMore = count == limit
	}
	if p.HasMore {
		next := offset + count
		p.NextOffset = &next
	}
	return p
}

// markdownTable renders records as a Markdown table. columns picks and
// orders the fields; when nil, the union of record keys is used in
// sorted order.
func markdownTable(records []map[string]any, columns []string, title string) string {
	if len(records) == 0 {
		return "No records found."
	}
	if columns == nil {
		columns = unionKeys(records)
	}

	tw := table.NewWriter()
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, rec := range records {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = cellValue(rec[c])
		}
		tw.AppendRow(row)
	}

	var b strings.Builder
	if title != "" {
		b.WriteString("## " + title + "\n\n")
	}
	b.WriteString(tw.RenderMarkdown())
	return b.String()
}

// markdownList renders records as titled Markdown sections, one per
// record. titleField names the field used as each section heading;
// fields picks the listed attributes (nil means every field except the
// title).
func markdownList(records []map[string]any, titleField string, fields []string, title string) string {
	if len(records) == 0 {
		return "No records found."
	}

	var b strings.Builder
	if title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	for i, rec := range records {
		heading := fmt.Sprintf("Record %d", i+1)
		if v, ok := rec[titleField]; ok && v != nil {
			heading = fmt.Sprint(v)
		}
		b.WriteString("## " + heading + "\n\n")

		display := fields
		if display == nil {
			for _, k := range unionKeys([]map[string]any{rec}) {
				if k != titleField {
					display = append(display, k)
				}
			}
		}
		for _, f := range display {
			v, ok := rec[f]
			if !ok || v == nil {
				continue
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", f, cellValue(v))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// paginationFooter renders the trailing pagination line for Markdown
// output.
func paginationFooter(p *methodmcp.Pagination) string {
	if p == nil {
		return ""
	}
	start := p.Offset + 1
	end := p.Offset + p.Count
	if p.Count == 0 {
		start = p.Offset
	}

	var b strings.Builder
	if p.Total != nil {
		fmt.Fprintf(&b, "\n\n**Pagination**: Showing records %d-%d of %d", start, end, *p.Total)
	} else {
		fmt.Fprintf(&b, "\n\n**Pagination**: Showing records %d-%d", start, end)
	}
	if p.HasMore && p.NextOffset != nil {
		fmt.Fprintf(&b, " | More records available | Next offset: %d", *p.NextOffset)
	}
	return b.String()
}

func cellValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case string:
		return strings.ReplaceAll(x, "|", "\\|")
	case map[string]any, []any:
		out, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return strings.ReplaceAll(string(out), "|", "\\|")
	default:
		return fmt.Sprint(x)
	}
}

func unionKeys(records []map[string]any) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// clampPage normalizes top/skip arguments to the advertised bounds.
func clampPage(top, skip int) (int, int) {
	if top < 1 {
		top = defaultPageSize
	}
	if top > maxPageSize {
		top = maxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return top, skip
}
