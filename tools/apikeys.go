// apikeys.go
// ----------
// API key management tools. Key material is only ever visible in the
// create response; listings return masked keys.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

// APIKeysCreateTool creates a new API key. The plaintext key appears
// only in this response and cannot be retrieved again.
type APIKeysCreateTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *APIKeysCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("method_apikeys_create",
		mcp.WithDescription("Create a Method CRM API key. The key value is returned once and cannot be retrieved later."),
		mcp.WithTitleAnnotation("Create Method CRM API Key"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("Descriptive name for the key")),
		mcp.WithString("description", mcp.Description("Optional description of the key's purpose")),
		mcp.WithArray("permissions", mcp.Description("Permission scopes to grant (default: account defaults)")),
	)
}

func (t *APIKeysCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload := map[string]any{"Name": name}
	if desc := req.GetString("description", ""); desc != "" {
		payload["Description"] = desc
	}
	if perms, ok := req.GetArguments()["permissions"].([]any); ok && len(perms) > 0 {
		payload["Permissions"] = perms
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("building key payload: " + err.Error()), nil
	}

	res := t.client.Post(ctx, "apikeys", body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	meta, _ := res.Payload.(map[string]any)
	return textResult(jsonEnvelope(map[string]any{
		"KeyId":       meta["Id"],
		"Name":        name,
		"ApiKey":      meta["ApiKey"],
		"Permissions": meta["Permissions"],
		"CreatedAt":   meta["CreatedDate"],
		"CreatedBy":   meta["CreatedBy"],
		"Warning":     "Save this API key securely. It will not be shown again.",
	}, "API key created successfully")), nil
}

// APIKeysListTool lists API keys with masked key material.
type APIKeysListTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *APIKeysListTool) Definition() mcp.Tool {
	return mcp.NewTool("method_apikeys_list",
		mcp.WithDescription("List Method CRM API keys. Only metadata and masked keys are returned."),
		mcp.WithTitleAnnotation("List Method CRM API Keys"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithNumber("top", mcp.Description("Keys per page, 1-100 (default 20)")),
		mcp.WithNumber("skip", mcp.Description("Keys to skip for pagination (default 0)")),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *APIKeysListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, skip := clampPage(req.GetInt("top", defaultPageSize), req.GetInt("skip", 0))

	values, f := methodmcp.Query{Top: top, Skip: skip}.Values()
	if f != nil {
		return failureResult(f), nil
	}
	res := t.client.Get(ctx, "apikeys", values)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	keys, total, hasNext := parseList(res.Raw)
	page := pageInfo(total, len(keys), skip, top, hasNext)

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		title := fmt.Sprintf("API Keys (%d)", len(keys))
		if total != nil {
			title = fmt.Sprintf("API Keys (%d of %d)", len(keys), *total)
		}
		md := markdownList(keys, "Name",
			[]string{"Id", "Description", "MaskedKey", "Permissions", "CreatedDate", "CreatedBy", "LastUsed", "IsActive"},
			title)
		return textResult(md + paginationFooter(page)), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"api_keys":   keys,
		"pagination": page,
	}, "")), nil
}

// APIKeysUpdateTool changes a key's metadata, permissions or active
// state. Only provided fields are sent.
type APIKeysUpdateTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *APIKeysUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("method_apikeys_update",
		mcp.WithDescription("Update a Method CRM API key's name, description, permissions or active state. Set is_active=false to disable a key without deleting it."),
		mcp.WithTitleAnnotation("Update Method CRM API Key"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("key_id", mcp.Required(), mcp.Description("Id of the key to update")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithArray("permissions", mcp.Description("Replacement permission scopes")),
		mcp.WithBoolean("is_active", mcp.Description("Enable or disable the key")),
	)
}

func (t *APIKeysUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyID, err := req.RequireString("key_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload := map[string]any{}
	if v := req.GetString("name", ""); v != "" {
		payload["Name"] = v
	}
	if v := req.GetString("description", ""); v != "" {
		payload["Description"] = v
	}
	if perms, ok := req.GetArguments()["permissions"].([]any); ok {
		payload["Permissions"] = perms
	}
	if _, ok := req.GetArguments()["is_active"]; ok {
		payload["IsActive"] = req.GetBool("is_active", true)
	}
	if len(payload) == 0 {
		return mcp.NewToolResultError("no fields to update: provide at least one of name, description, permissions, is_active"), nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("building key payload: " + err.Error()), nil
	}

	res := t.client.Put(ctx, "apikeys/"+keyID, body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"KeyId":  keyID,
		"Result": res.Payload,
	}, "API key updated successfully")), nil
}

// APIKeysDeleteTool revokes a key permanently. Clients using the key
// start failing with authentication errors immediately.
type APIKeysDeleteTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *APIKeysDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("method_apikeys_delete",
		mcp.WithDescription("Permanently revoke a Method CRM API key. This cannot be undone."),
		mcp.WithTitleAnnotation("Delete Method CRM API Key"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("key_id", mcp.Required(), mcp.Description("Id of the key to revoke")),
	)
}

func (t *APIKeysDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyID, err := req.RequireString("key_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.Delete(ctx, "apikeys/"+keyID)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{"KeyId": keyID}, "API key revoked successfully")), nil
}
