// paginator.go
// -------------
// Drives multi-page list operations by repeatedly invoking the executor and
// classifier with advancing page bounds. The sequence is finite and not
// restartable mid-stream: once drained (or once a page fails), a fresh
// Paginator must be built to start again from offset zero.
package methodmcp

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// PageCursor identifies the next page to fetch. Total is -1 until the API
// reports an overall count, which Method's list endpoints generally do not.
type PageCursor struct {
	Offset   int
	PageSize int
	Total    int
	HasMore  bool
}

// Paginator yields one OperationResult per page. On failure the failing
// result is the final element; pages already yielded are not retracted.
type Paginator struct {
	client *Client
	spec   *RequestSpec
	cursor PageCursor
	done   bool
}

// Paginate prepares a page loop over the given base request. The base
// spec's query must not already carry $top/$skip; the paginator owns them.
// pageSize <= 0 falls back to the API default of 20 per page.
func (c *Client) Paginate(spec *RequestSpec, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Paginator{
		client: c,
		spec:   spec,
		cursor: PageCursor{PageSize: pageSize, Total: -1, HasMore: true},
	}
}

// Cursor returns the continuation state after the most recent page.
func (p *Paginator) Cursor() PageCursor {
	return p.cursor
}

// Next fetches the next page. The second return value is false once the
// sequence is exhausted; after a failed page it is false on the following
// call, never retroactively.
func (p *Paginator) Next(ctx context.Context) (OperationResult, bool) {
	if p.done {
		return OperationResult{}, false
	}

	pageSpec := p.pageSpec()
	result := p.client.Do(ctx, pageSpec)
	if !result.Ok() {
		p.done = true
		return result, true
	}

	returned, total, nextLink := listShape(result.Raw)
	offset := p.cursor.Offset
	p.cursor.Offset += returned
	if total >= 0 {
		p.cursor.Total = total
	}

	switch {
	case nextLink:
		p.cursor.HasMore = true
	case p.cursor.Total >= 0:
		p.cursor.HasMore = returned == p.cursor.PageSize && p.cursor.Offset < p.cursor.Total
	default:
		p.cursor.HasMore = returned == p.cursor.PageSize
	}
	if !p.cursor.HasMore {
		p.done = true
	}

	result.Page = p.pagination(offset, returned)
	return result, true
}

// Collect drains the sequence, returning every yielded page.
func (p *Paginator) Collect(ctx context.Context) []OperationResult {
	var pages []OperationResult
	for {
		page, ok := p.Next(ctx)
		if !ok {
			return pages
		}
		pages = append(pages, page)
	}
}

func (p *Paginator) pageSpec() *RequestSpec {
	out := *p.spec
	q := cloneValues(p.spec.Query)
	q.Set("$top", strconv.Itoa(p.cursor.PageSize))
	q.Set("$skip", strconv.Itoa(p.cursor.Offset))
	out.Query = q
	return &out
}

func (p *Paginator) pagination(offset, returned int) *Pagination {
	pg := &Pagination{
		Count:   returned,
		Offset:  offset,
		Limit:   p.cursor.PageSize,
		HasMore: p.cursor.HasMore,
	}
	if p.cursor.Total >= 0 {
		total := p.cursor.Total
		pg.Total = &total
	}
	if pg.HasMore {
		next := offset + returned
		pg.NextOffset = &next
	}
	return pg
}

// listShape pulls the page geometry out of a list response body. Method
// list endpoints answer {"value":[...],"count":n,"nextLink":"..."} and do
// not report a grand total; total comes back -1 when absent.
func listShape(raw []byte) (returned, total int, hasNextLink bool) {
	var envelope struct {
		Value    []json.RawMessage `json:"value"`
		Count    *int              `json:"count"`
		Total    *int              `json:"total"`
		NextLink *string           `json:"nextLink"`
	}
	total = -1
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, -1, false
	}
	returned = len(envelope.Value)
	if envelope.Count != nil && returned == 0 {
		returned = *envelope.Count
	}
	if envelope.Total != nil {
		total = *envelope.Total
	}
	return returned, total, envelope.NextLink != nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
