// user.go
// -------
// Current account tool backed by the me endpoint. Useful as a first
// call to verify credentials and inspect permissions.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

type UserInfoTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *UserInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("method_user_info",
		mcp.WithDescription("Get the authenticated Method CRM user: name, email, role, permissions and account details. Also verifies that credentials are valid."),
		mcp.WithTitleAnnotation("Get Current Method CRM User"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *UserInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.client.Get(ctx, "me", nil)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		user, _ := res.Payload.(map[string]any)
		return textResult(renderUserProfile(user)), nil
	}
	return textResult(jsonEnvelope(res.Payload, "")), nil
}

func renderUserProfile(user map[string]any) string {
	var b strings.Builder
	b.WriteString("# User Information\n\n")

	writeField := func(label, key string) {
		if v, ok := user[key]; ok && v != nil && fmt.Sprint(v) != "" {
			fmt.Fprintf(&b, "**%s**: %v\n", label, v)
		}
	}
	writeField("Name", "FullName")
	writeField("Username", "UserName")
	writeField("Email", "Email")
	writeField("Role", "Role")
	writeField("Company", "CompanyName")

	b.WriteString("\n## Account Details\n\n")
	writeField("Account ID", "AccountId")
	if v, ok := user["IsActive"]; ok {
		status := "Inactive"
		if active, _ := v.(bool); active {
			status = "Active"
		}
		fmt.Fprintf(&b, "**Status**: %s\n", status)
	}
	writeField("Account Created", "CreatedDate")
	writeField("Last Login", "LastLogin")

	if perms, ok := user["Permissions"].([]any); ok && len(perms) > 0 {
		b.WriteString("\n## Permissions\n\n")
		for _, p := range perms {
			fmt.Fprintf(&b, "- %v\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
