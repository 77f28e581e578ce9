// tables.go
// ---------
// CRUD tools for Method CRM table records. All five tools share the
// tables/{table} endpoint family and the OData query vocabulary.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

// maxRelatedRecords is the API limit on RelatedRecords per create or
// update request.
const maxRelatedRecords = 50

// TablesQueryTool lists records from a table with filtering, sorting,
// pagination and aggregation.
type TablesQueryTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *TablesQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("method_tables_query",
		mcp.WithDescription("Query records from a Method CRM table with filtering, sorting, pagination and aggregation. Works with any table (Customer, Invoice, Item, Activity, ...)."),
		mcp.WithTitleAnnotation("Query Method CRM Table Records"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name, e.g. 'Customer' or 'Invoice'"),
		),
		mcp.WithString("filter",
			mcp.Description("OData filter expression, e.g. \"IsActive eq true and contains(Name, 'Corp')\""),
		),
		mcp.WithString("select",
			mcp.Description("Comma-separated list of fields to return"),
		),
		mcp.WithString("orderby",
			mcp.Description("Sort expression, e.g. 'CreatedDate desc'"),
		),
		mcp.WithString("expand",
			mcp.Description("Related entities to include, e.g. 'Contacts'"),
		),
		mcp.WithString("aggregate",
			mcp.Description("OData $apply aggregation, e.g. 'aggregate(Amount with sum as Total)'"),
		),
		mcp.WithNumber("top",
			mcp.Description("Records per page, 1-100 (default 20)"),
		),
		mcp.WithNumber("skip",
			mcp.Description("Records to skip for pagination (default 0)"),
		),
		mcp.WithString("response_format",
			mcp.Description("'json' (default) or 'markdown'"),
		),
	)
}

func (t *TablesQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	top, skip := clampPage(req.GetInt("top", defaultPageSize), req.GetInt("skip", 0))

	q := methodmcp.Query{
		Filter:    req.GetString("filter", ""),
		Select:    req.GetString("select", ""),
		OrderBy:   req.GetString("orderby", ""),
		Expand:    req.GetString("expand", ""),
		Aggregate: req.GetString("aggregate", ""),
		Top:       top,
		Skip:      skip,
	}
	values, f := q.Values()
	if f != nil {
		return failureResult(f), nil
	}

	res := t.client.Get(ctx, "tables/"+tableName, values)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	if q.AggregateOnly() {
		// Aggregations return computed rows, not pageable records.
		return textResult(jsonEnvelope(res.Payload, "")), nil
	}

	records, total, hasNext := parseList(res.Raw)
	page := pageInfo(total, len(records), skip, top, hasNext)

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		title := fmt.Sprintf("Query Results: %s (%d records)", tableName, len(records))
		if total != nil {
			title = fmt.Sprintf("Query Results: %s (%d of %d records)", tableName, len(records), *total)
		}
		return textResult(markdownTable(records, nil, title) + paginationFooter(page)), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"records":    records,
		"pagination": page,
	}, "")), nil
}

// TablesGetTool fetches a single record by id.
type TablesGetTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *TablesGetTool) Definition() mcp.Tool {
	return mcp.NewTool("method_tables_get",
		mcp.WithDescription("Get a single Method CRM record by its RecordId."),
		mcp.WithTitleAnnotation("Get Method CRM Table Record by ID"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("RecordId of the record")),
		mcp.WithString("select", mcp.Description("Comma-separated list of fields to return")),
		mcp.WithString("expand", mcp.Description("Related entities to include")),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *TablesGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recordID, err := req.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := methodmcp.Query{
		Select: req.GetString("select", ""),
		Expand: req.GetString("expand", ""),
	}
	values, f := q.Values()
	if f != nil {
		return failureResult(f), nil
	}

	res := t.client.Get(ctx, "tables/"+tableName+"/"+recordID, values)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		record, _ := res.Payload.(map[string]any)
		title := fmt.Sprintf("%s Record %s", tableName, recordID)
		return textResult(markdownTable([]map[string]any{record}, nil, title)), nil
	}
	return textResult(jsonEnvelope(res.Payload, "")), nil
}

// TablesCreateTool inserts a new record, optionally with related child
// records in the same request.
type TablesCreateTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *TablesCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("method_tables_create",
		mcp.WithDescription("Create a new record in a Method CRM table. Required fields vary by table; custom fields follow the 'CustomField_Name' pattern."),
		mcp.WithTitleAnnotation("Create Method CRM Table Record"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field name to value map for the new record"),
		),
		mcp.WithArray("related_records",
			mcp.Description("Child records to create in the same request (max 50)"),
		),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *TablesCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, errRes := objectArg(req, "fields")
	if errRes != nil {
		return errRes, nil
	}

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	related, errRes := relatedRecordsArg(req)
	if errRes != nil {
		return errRes, nil
	}
	if related != nil {
		payload["RelatedRecords"] = related
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("invalid fields payload: " + err.Error()), nil
	}

	res := t.client.Post(ctx, "tables/"+tableName, body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		record, _ := res.Payload.(map[string]any)
		return textResult("✅ **Record Created Successfully**\n\n" + markdownTable([]map[string]any{record}, nil, "")), nil
	}
	return textResult(jsonEnvelope(res.Payload, "Record created successfully")), nil
}

// TablesUpdateTool applies a partial update to an existing record.
type TablesUpdateTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *TablesUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("method_tables_update",
		mcp.WithDescription("Update fields on an existing Method CRM record. Only the provided fields change."),
		mcp.WithTitleAnnotation("Update Method CRM Table Record"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("RecordId of the record to update")),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field name to value map of changes"),
		),
		mcp.WithArray("related_records",
			mcp.Description("Child records to update in the same request (max 50)"),
		),
	)
}

func (t *TablesUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recordID, err := req.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, errRes := objectArg(req, "fields")
	if errRes != nil {
		return errRes, nil
	}

	payload := make(map[string]any, len(fields)+1)
	updated := make([]string, 0, len(fields))
	for k, v := range fields {
		payload[k] = v
		updated = append(updated, k)
	}
	related, errRes := relatedRecordsArg(req)
	if errRes != nil {
		return errRes, nil
	}
	if related != nil {
		payload["RelatedRecords"] = related
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("invalid fields payload: " + err.Error()), nil
	}

	res := t.client.Patch(ctx, "tables/"+tableName+"/"+recordID, body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"RecordId":      recordID,
		"Table":         tableName,
		"UpdatedFields": updated,
		"Result":        res.Payload,
	}, "Record updated successfully")), nil
}

// TablesDeleteTool removes a record permanently.
type TablesDeleteTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *TablesDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("method_tables_delete",
		mcp.WithDescription("Permanently delete a record from a Method CRM table. This cannot be undone."),
		mcp.WithTitleAnnotation("Delete Method CRM Table Record"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("RecordId of the record to delete")),
	)
}

func (t *TablesDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recordID, err := req.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.Delete(ctx, "tables/"+tableName+"/"+recordID)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"RecordId": recordID,
		"Table":    tableName,
	}, "Record deleted successfully")), nil
}

// objectArg reads a required object argument from the request.
func objectArg(req mcp.CallToolRequest, name string) (map[string]any, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("required argument %q not found", name))
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("argument %q must be an object", name))
	}
	return obj, nil
}

// relatedRecordsArg reads the optional related_records array and
// enforces the per-request limit.
func relatedRecordsArg(req mcp.CallToolRequest) ([]any, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()["related_records"]
	if !ok || raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, mcp.NewToolResultError("argument \"related_records\" must be an array")
	}
	if len(arr) > maxRelatedRecords {
		return nil, mcp.NewToolResultError(fmt.Sprintf("related_records exceeds the limit of %d per request", maxRelatedRecords))
	}
	return arr, nil
}
