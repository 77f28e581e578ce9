// files.go
// --------
// File attachment tools. The files endpoint family has three quirks the
// rest of the API does not: uploads are multipart/form-data, downloads
// return raw bytes, and the url endpoint returns a JSON-quoted string.

package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

// maxUploadBytes is the API limit on a single file upload.
const maxUploadBytes = 50 * 1024 * 1024

// FilesUploadTool uploads a file and links it to a record. Method CRM
// requires every file to be attached to a record, so the link arguments
// are mandatory.
type FilesUploadTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesUploadTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_upload",
		mcp.WithDescription("Upload a file (max 50MB) and attach it to a Method CRM record. Content must be base64-encoded."),
		mcp.WithTitleAnnotation("Upload File to Method CRM"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Name for the uploaded file, including extension")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Base64-encoded file content")),
		mcp.WithString("link_table", mcp.Required(), mcp.Description("Table of the record to attach the file to")),
		mcp.WithString("link_record_id", mcp.Required(), mcp.Description("RecordId of the record to attach the file to")),
		mcp.WithString("description", mcp.Description("Optional file description")),
	)
}

func (t *FilesUploadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkTable, err := req.RequireString("link_table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkRecordID, err := req.RequireString("link_record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fileBytes, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return textResult(jsonFailure("invalid base64 content: " + err.Error())), nil
	}
	if len(fileBytes) > maxUploadBytes {
		return textResult(jsonFailure(fmt.Sprintf("file size (%d bytes) exceeds 50MB limit (%d bytes)", len(fileBytes), maxUploadBytes))), nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return mcp.NewToolResultError("building upload request: " + err.Error()), nil
	}
	if _, err := part.Write(fileBytes); err != nil {
		return mcp.NewToolResultError("building upload request: " + err.Error()), nil
	}
	if err := w.WriteField("table", linkTable); err != nil {
		return mcp.NewToolResultError("building upload request: " + err.Error()), nil
	}
	if err := w.WriteField("recordId", linkRecordID); err != nil {
		return mcp.NewToolResultError("building upload request: " + err.Error()), nil
	}
	if desc := req.GetString("description", ""); desc != "" {
		if err := w.WriteField("description", desc); err != nil {
			return mcp.NewToolResultError("building upload request: " + err.Error()), nil
		}
	}
	if err := w.Close(); err != nil {
		return mcp.NewToolResultError("building upload request: " + err.Error()), nil
	}

	// The multipart content type must win over the client's default
	// application/json, which the API rejects with 415 for uploads.
	res := t.client.Do(ctx, &methodmcp.RequestSpec{
		Method:  http.MethodPost,
		Path:    "files",
		Headers: map[string]string{"Content-Type": w.FormDataContentType()},
		Body:    buf.Bytes(),
	})
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	meta, _ := res.Payload.(map[string]any)
	return textResult(jsonEnvelope(map[string]any{
		"FileId":         meta["id"],
		"Filename":       meta["filename"],
		"FileExtension":  meta["fileExtension"],
		"Size":           meta["size"],
		"LinkedTable":    linkTable,
		"LinkedRecordId": linkRecordID,
	}, "File uploaded successfully")), nil
}

// FilesListTool lists uploaded files, optionally scoped to a record.
type FilesListTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesListTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_list",
		mcp.WithDescription("List files uploaded to Method CRM, optionally filtered by the record they are attached to or by filename."),
		mcp.WithTitleAnnotation("List Method CRM Files"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("link_table", mcp.Description("Only files attached to records in this table")),
		mcp.WithString("link_record_id", mcp.Description("Only files attached to this record")),
		mcp.WithString("filename_contains", mcp.Description("Only files whose name contains this substring")),
		mcp.WithNumber("top", mcp.Description("Files per page, 1-100 (default 20)")),
		mcp.WithNumber("skip", mcp.Description("Files to skip for pagination (default 0)")),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *FilesListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, skip := clampPage(req.GetInt("top", defaultPageSize), req.GetInt("skip", 0))

	var filters []string
	if v := req.GetString("link_table", ""); v != "" {
		filters = append(filters, fmt.Sprintf("LinkTable eq '%s'", v))
	}
	if v := req.GetString("link_record_id", ""); v != "" {
		filters = append(filters, fmt.Sprintf("LinkRecordId eq '%s'", v))
	}
	if v := req.GetString("filename_contains", ""); v != "" {
		filters = append(filters, fmt.Sprintf("contains(Filename, '%s')", v))
	}

	q := methodmcp.Query{
		Filter: strings.Join(filters, " and "),
		Top:    top,
		Skip:   skip,
	}
	values, f := q.Values()
	if f != nil {
		return failureResult(f), nil
	}

	res := t.client.Get(ctx, "files", values)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	files, total, hasNext := parseList(res.Raw)
	page := pageInfo(total, len(files), skip, top, hasNext)

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		md := markdownList(files, "filename",
			[]string{"id", "fileExtension", "size", "LinkTable", "LinkRecordId", "createdDate"},
			fmt.Sprintf("Files (%d)", len(files)))
		return textResult(md + paginationFooter(page)), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"files":      files,
		"pagination": page,
	}, "")), nil
}

// FilesDownloadTool fetches a file's binary content.
type FilesDownloadTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesDownloadTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_download",
		mcp.WithDescription("Download a file from Method CRM. Content is returned base64-encoded; set return_content=false for metadata only."),
		mcp.WithTitleAnnotation("Download File from Method CRM"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Id of the file to download")),
		mcp.WithBoolean("return_content", mcp.Description("Include base64-encoded file content (default true)")),
	)
}

func (t *FilesDownloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.DoRaw(ctx, &methodmcp.RequestSpec{
		Method: http.MethodGet,
		Path:   "files/" + fileID + "/download",
	})
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	contentType := res.Headers["content-type"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data := map[string]any{
		"FileId":      fileID,
		"Filename":    dispositionFilename(res.Headers["content-disposition"]),
		"Size":        len(res.Raw),
		"ContentType": contentType,
	}
	if req.GetBool("return_content", true) {
		data["Content"] = base64.StdEncoding.EncodeToString(res.Raw)
		data["Note"] = "Content is base64-encoded. Decode to get the original file."
	}
	return textResult(jsonEnvelope(data, "")), nil
}

// FilesGetURLTool generates a temporary pre-signed download URL.
type FilesGetURLTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesGetURLTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_get_url",
		mcp.WithDescription("Generate a temporary download URL for a file (expires after 20 minutes)."),
		mcp.WithTitleAnnotation("Get Temporary Download URL for File"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Id of the file")),
	)
}

func (t *FilesGetURLTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// The url endpoint answers a JSON string literal, not an object.
	res := t.client.DoRaw(ctx, &methodmcp.RequestSpec{
		Method: http.MethodGet,
		Path:   "files/" + fileID + "/url",
	})
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	var downloadURL string
	if err := json.Unmarshal(res.Raw, &downloadURL); err != nil {
		downloadURL = strings.TrimSpace(string(res.Raw))
	}
	return textResult(jsonEnvelope(map[string]any{
		"FileId":      fileID,
		"DownloadUrl": downloadURL,
		"ExpiresIn":   "20 minutes",
	}, "")), nil
}

// FilesUpdateLinkTool reattaches a file to a different record. The API
// path is files/{id}/link, not files/{id}.
type FilesUpdateLinkTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesUpdateLinkTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_update_link",
		mcp.WithDescription("Move a file attachment to a different Method CRM record."),
		mcp.WithTitleAnnotation("Update File Record Link"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Id of the file to relink")),
		mcp.WithString("link_table", mcp.Required(), mcp.Description("Table of the new target record")),
		mcp.WithString("link_record_id", mcp.Required(), mcp.Description("RecordId of the new target record")),
	)
}

func (t *FilesUpdateLinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkTable, err := req.RequireString("link_table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkRecordID, err := req.RequireString("link_record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload := map[string]any{"tableName": linkTable}
	if n, convErr := strconv.Atoi(linkRecordID); convErr == nil {
		payload["recordId"] = n
	} else {
		payload["recordId"] = linkRecordID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("building link payload: " + err.Error()), nil
	}

	res := t.client.Put(ctx, "files/"+fileID+"/link", body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	meta, _ := res.Payload.(map[string]any)
	return textResult(jsonEnvelope(map[string]any{
		"FileId":          fileID,
		"Filename":        meta["Filename"],
		"NewLinkTable":    linkTable,
		"NewLinkRecordId": linkRecordID,
	}, "File link updated successfully")), nil
}

// FilesDeleteTool removes a file permanently.
type FilesDeleteTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *FilesDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("method_files_delete",
		mcp.WithDescription("Permanently delete a file from Method CRM. This cannot be undone."),
		mcp.WithTitleAnnotation("Delete File from Method CRM"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Id of the file to delete")),
	)
}

func (t *FilesDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.Delete(ctx, "files/"+fileID)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{"FileId": fileID}, "File deleted successfully")), nil
}

// dispositionFilename extracts the filename parameter from a
// Content-Disposition header, if present.
func dispositionFilename(disposition string) string {
	_, after, found := strings.Cut(disposition, "filename=")
	if !found {
		return ""
	}
	name := strings.TrimSpace(after)
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.Trim(name, `"`)
}
