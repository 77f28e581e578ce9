package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	methodmcp "github.com/methodcrm/method-mcp"
	"github.com/methodcrm/method-mcp/mock"
)

type fakeCreds struct{}

func (fakeCreds) Headers() (map[string]string, error) {
	return map[string]string{
		"Authorization": "APIKey test-key",
		"Content-Type":  "application/json",
	}, nil
}
func (fakeCreds) Scheme() string { return "api_key" }

func toolClient(t *testing.T, tr *mock.Transport) *methodmcp.Client {
	t.Helper()
	client, f := methodmcp.NewClient(methodmcp.DefaultBaseURL, fakeCreds{},
		methodmcp.WithTransport(tr),
		methodmcp.WithRetryPolicy(methodmcp.RetryPolicy{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  2.0,
		}),
		methodmcp.WithRequestsPerMinute(1000),
	)
	require.Nil(t, f)
	return client
}

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeEnvelope(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &parsed))
	return parsed
}

func TestAllToolsHaveUniqueNames(t *testing.T) {
	ts := All(toolClient(t, &mock.Transport{}), nil)
	require.Len(t, ts, 20)

	seen := map[string]bool{}
	for _, tool := range ts {
		def := tool.Definition()
		assert.NotEmpty(t, def.Description)
		assert.False(t, seen[def.Name], "duplicate tool name %s", def.Name)
		seen[def.Name] = true
		assert.True(t, strings.HasPrefix(def.Name, "method_"), "tool %s must carry the method_ prefix", def.Name)
	}
}

func TestTablesQuery_JSONResponse(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"value":[{"Name":"Acme","IsActive":true}],"count":1}`),
	}}
	tool := &TablesQueryTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_query", map[string]any{
		"table":  "Customer",
		"filter": "IsActive eq true",
		"top":    float64(10),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	parsed := decodeEnvelope(t, res)
	assert.Equal(t, true, parsed["success"])
	data := parsed["data"].(map[string]any)
	assert.Len(t, data["records"], 1)

	page := data["pagination"].(map[string]any)
	assert.Equal(t, float64(1), page["count"])
	assert.Equal(t, float64(0), page["offset"])
	assert.Equal(t, false, page["has_more"])

	spec := tr.Spec(0)
	require.NotNil(t, spec)
	assert.Equal(t, "tables/Customer", spec.Path)
	assert.Equal(t, "IsActive eq true", spec.Query.Get("$filter"))
	assert.Equal(t, "10", spec.Query.Get("$top"))
}

func TestTablesQuery_MarkdownResponse(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"value":[{"Name":"Acme"}],"count":1}`),
	}}
	tool := &TablesQueryTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_query", map[string]any{
		"table":           "Customer",
		"response_format": "markdown",
	}))
	require.NoError(t, err)

	out := resultText(t, res)
	assert.Contains(t, out, "Query Results: Customer (1 records)")
	assert.Contains(t, out, "Acme")
}

func TestTablesQuery_MissingTable(t *testing.T) {
	tool := &TablesQueryTool{client: toolClient(t, &mock.Transport{})}

	res, err := tool.Handle(context.Background(), callReq("method_tables_query", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTablesQuery_ClampsOversizedPage(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`{"value":[]}`)}}
	tool := &TablesQueryTool{client: toolClient(t, tr)}

	_, err := tool.Handle(context.Background(), callReq("method_tables_query", map[string]any{
		"table": "Customer",
		"top":   float64(5000),
	}))
	require.NoError(t, err)
	assert.Equal(t, "100", tr.Spec(0).Query.Get("$top"))
}

func TestTablesQuery_APIFailureBecomesErrorResult(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.Status(404, `{"message":"no such table"}`),
	}}
	tool := &TablesQueryTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_query", map[string]any{
		"table": "Nope",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	out := resultText(t, res)
	assert.Contains(t, out, "NotFound")
	assert.Contains(t, out, "Suggestion:")
}

func TestTablesCreate_SendsFieldsAndRelatedRecords(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"RecordId":"123","Name":"Acme"}`),
	}}
	tool := &TablesCreateTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_create", map[string]any{
		"table":           "Customer",
		"fields":          map[string]any{"Name": "Acme"},
		"related_records": []any{map[string]any{"Type": "Contact"}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(tr.Spec(0).Body, &sent))
	assert.Equal(t, "Acme", sent["Name"])
	assert.Len(t, sent["RelatedRecords"], 1)

	parsed := decodeEnvelope(t, res)
	assert.Equal(t, "Record created successfully", parsed["message"])
}

func TestTablesCreate_RejectsTooManyRelatedRecords(t *testing.T) {
	tool := &TablesCreateTool{client: toolClient(t, &mock.Transport{})}

	related := make([]any, maxRelatedRecords+1)
	res, err := tool.Handle(context.Background(), callReq("method_tables_create", map[string]any{
		"table":           "Invoice",
		"fields":          map[string]any{"Total": 10},
		"related_records": related,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTablesUpdate_ReportsChangedFields(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`{}`)}}
	tool := &TablesUpdateTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_update", map[string]any{
		"table":     "Customer",
		"record_id": "42",
		"fields":    map[string]any{"Email": "new@example.com"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "PATCH", tr.Spec(0).Method)
	assert.Equal(t, "tables/Customer/42", tr.Spec(0).Path)

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, []any{"Email"}, data["UpdatedFields"])
}

func TestTablesDelete(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.Status(204, ``)}}
	tool := &TablesDeleteTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_tables_delete", map[string]any{
		"table":     "Customer",
		"record_id": "42",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "DELETE", tr.Spec(0).Method)
}

func TestFilesUpload_BuildsMultipartRequest(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"id":"f1","filename":"a.txt","fileExtension":".txt","size":5}`),
	}}
	tool := &FilesUploadTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_files_upload", map[string]any{
		"filename":       "a.txt",
		"content":        base64.StdEncoding.EncodeToString([]byte("hello")),
		"link_table":     "Customer",
		"link_record_id": "42",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	spec := tr.Spec(0)
	assert.Equal(t, "files", spec.Path)
	assert.Contains(t, spec.Headers["Content-Type"], "multipart/form-data; boundary=")
	body := string(spec.Body)
	assert.Contains(t, body, `filename="a.txt"`)
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, `name="table"`)
	assert.Contains(t, body, `name="recordId"`)

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "f1", data["FileId"])
	assert.Equal(t, "Customer", data["LinkedTable"])
}

func TestFilesUpload_RejectsBadBase64(t *testing.T) {
	tool := &FilesUploadTool{client: toolClient(t, &mock.Transport{})}

	res, err := tool.Handle(context.Background(), callReq("method_files_upload", map[string]any{
		"filename":       "a.txt",
		"content":        "!!! not base64 !!!",
		"link_table":     "Customer",
		"link_record_id": "42",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, "input problems answer a failure envelope, not a protocol error")

	parsed := decodeEnvelope(t, res)
	assert.Equal(t, false, parsed["success"])
	assert.Contains(t, parsed["error"], "base64")
}

func TestFilesDownload_EncodesContent(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.StatusWithHeaders(200, map[string]string{
			"content-type":        "application/pdf",
			"content-disposition": `attachment; filename="contract.pdf"`,
		}, "%PDF-1.4"),
	}}
	tool := &FilesDownloadTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_files_download", map[string]any{
		"file_id": "f1",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "contract.pdf", data["Filename"])
	assert.Equal(t, "application/pdf", data["ContentType"])

	decoded, decodeErr := base64.StdEncoding.DecodeString(data["Content"].(string))
	require.NoError(t, decodeErr)
	assert.Equal(t, "%PDF-1.4", string(decoded))
}

func TestFilesGetURL_UnquotesBody(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.Status(200, `"https://files.method.me/tmp/abc"`),
	}}
	tool := &FilesGetURLTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_files_get_url", map[string]any{
		"file_id": "f1",
	}))
	require.NoError(t, err)

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "https://files.method.me/tmp/abc", data["DownloadUrl"])
}

func TestFilesList_BuildsScopedFilter(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`[{"id":"f1","filename":"a.txt"}]`)}}
	tool := &FilesListTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_files_list", map[string]any{
		"link_table":     "Customer",
		"link_record_id": "42",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	filter := tr.Spec(0).Query.Get("$filter")
	assert.Contains(t, filter, "LinkTable eq 'Customer'")
	assert.Contains(t, filter, "LinkRecordId eq '42'")
}

func TestFilesUpdateLink_NumericRecordID(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`{"Filename":"a.txt"}`)}}
	tool := &FilesUpdateLinkTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_files_update_link", map[string]any{
		"file_id":        "f1",
		"link_table":     "Invoice",
		"link_record_id": "77",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	spec := tr.Spec(0)
	assert.Equal(t, "PUT", spec.Method)
	assert.Equal(t, "files/f1/link", spec.Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(spec.Body, &sent))
	assert.Equal(t, "Invoice", sent["tableName"])
	assert.Equal(t, float64(77), sent["recordId"], "numeric ids are sent as numbers")
}

func TestEventsCreateRoutine(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"Id":"r1","CreatedDate":"2025-06-01T00:00:00Z"}`),
	}}
	tool := &EventsCreateRoutineTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_events_create_routine", map[string]any{
		"name":           "Invoice alert",
		"trigger_config": map[string]any{"table": "Invoice", "event": "created"},
		"actions":        []any{map[string]any{"type": "email"}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "eda/event-routines", tr.Spec(0).Path)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(tr.Spec(0).Body, &sent))
	assert.Equal(t, "Invoice alert", sent["Name"])
	assert.Equal(t, true, sent["Enabled"])

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "r1", data["RoutineId"])
}

func TestEventsCreateRoutine_RequiresActions(t *testing.T) {
	tool := &EventsCreateRoutineTool{client: toolClient(t, &mock.Transport{})}

	res, err := tool.Handle(context.Background(), callReq("method_events_create_routine", map[string]any{
		"name":           "x",
		"trigger_config": map[string]any{"table": "Invoice"},
		"actions":        []any{},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEventsListRoutines_EmptyMarkdown(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`{"value":[]}`)}}
	tool := &EventsListRoutinesTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_events_list_routines", map[string]any{
		"response_format": "markdown",
	}))
	require.NoError(t, err)
	assert.Equal(t, "# Event Routines\n\nNo event routines configured.", resultText(t, res))
}

func TestUserInfo_MarkdownProfile(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"FullName":"Jo Smith","Email":"jo@example.com","IsActive":true,"Permissions":["tables:read"]}`),
	}}
	tool := &UserInfoTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_user_info", map[string]any{
		"response_format": "markdown",
	}))
	require.NoError(t, err)

	out := resultText(t, res)
	assert.Equal(t, "me", tr.Spec(0).Path)
	assert.Contains(t, out, "# User Information")
	assert.Contains(t, out, "**Name**: Jo Smith")
	assert.Contains(t, out, "**Status**: Active")
	assert.Contains(t, out, "- tables:read")
}

func TestAPIKeysCreate_SurfacesKeyOnce(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{
		mock.JSON(`{"Id":"k1","ApiKey":"sk-new","Permissions":["*"],"CreatedDate":"2025-06-01","CreatedBy":"jo"}`),
	}}
	tool := &APIKeysCreateTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_apikeys_create", map[string]any{
		"name": "ci-bot",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	parsed := decodeEnvelope(t, res)
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "sk-new", data["ApiKey"])
	assert.Contains(t, data["Warning"], "not be shown again")
}

func TestAPIKeysUpdate_RequiresAtLeastOneField(t *testing.T) {
	tool := &APIKeysUpdateTool{client: toolClient(t, &mock.Transport{})}

	res, err := tool.Handle(context.Background(), callReq("method_apikeys_update", map[string]any{
		"key_id": "k1",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAPIKeysUpdate_SendsOnlyProvidedFields(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.JSON(`{}`)}}
	tool := &APIKeysUpdateTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_apikeys_update", map[string]any{
		"key_id":    "k1",
		"is_active": false,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(tr.Spec(0).Body, &sent))
	assert.Equal(t, map[string]any{"IsActive": false}, sent)
	assert.Equal(t, "apikeys/k1", tr.Spec(0).Path)
}

func TestAPIKeysDelete(t *testing.T) {
	tr := &mock.Transport{Script: []mock.Step{mock.Status(204, ``)}}
	tool := &APIKeysDeleteTool{client: toolClient(t, tr)}

	res, err := tool.Handle(context.Background(), callReq("method_apikeys_delete", map[string]any{
		"key_id": "k1",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "DELETE", tr.Spec(0).Method)
	assert.Equal(t, "apikeys/k1", tr.Spec(0).Path)
}
