// events.go
// ---------
// Event-driven automation tools covering the eda/event-routines
// endpoint family.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

const eventRoutinesPath = "eda/event-routines"

// EventsCreateRoutineTool registers a new event routine: a trigger
// plus the actions to run when it fires.
type EventsCreateRoutineTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *EventsCreateRoutineTool) Definition() mcp.Tool {
	return mcp.NewTool("method_events_create_routine",
		mcp.WithDescription("Create an event routine that runs actions when a Method CRM trigger fires, e.g. send an email when an Invoice is created."),
		mcp.WithTitleAnnotation("Create Method CRM Event Routine"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("Routine name")),
		mcp.WithObject("trigger_config",
			mcp.Required(),
			mcp.Description("Trigger definition, e.g. {\"table\": \"Invoice\", \"event\": \"created\"}"),
		),
		mcp.WithArray("actions",
			mcp.Required(),
			mcp.Description("Actions to run when the trigger fires"),
		),
		mcp.WithBoolean("enabled", mcp.Description("Whether the routine is active (default true)")),
		mcp.WithString("description", mcp.Description("Optional routine description")),
	)
}

func (t *EventsCreateRoutineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trigger, errRes := objectArg(req, "trigger_config")
	if errRes != nil {
		return errRes, nil
	}
	actionsRaw, ok := req.GetArguments()["actions"]
	if !ok || actionsRaw == nil {
		return mcp.NewToolResultError("required argument \"actions\" not found"), nil
	}
	actions, ok := actionsRaw.([]any)
	if !ok || len(actions) == 0 {
		return mcp.NewToolResultError("argument \"actions\" must be a non-empty array"), nil
	}
	enabled := req.GetBool("enabled", true)

	payload := map[string]any{
		"Name":          name,
		"TriggerConfig": trigger,
		"Actions":       actions,
		"Enabled":       enabled,
	}
	if desc := req.GetString("description", ""); desc != "" {
		payload["Description"] = desc
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("building routine payload: " + err.Error()), nil
	}

	res := t.client.Post(ctx, eventRoutinesPath, body)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	meta, _ := res.Payload.(map[string]any)
	return textResult(jsonEnvelope(map[string]any{
		"RoutineId":     meta["Id"],
		"Name":          name,
		"TriggerConfig": trigger,
		"Actions":       actions,
		"Enabled":       enabled,
		"CreatedAt":     meta["CreatedDate"],
	}, fmt.Sprintf("Event routine %q created successfully", name))), nil
}

// EventsListRoutinesTool lists configured event routines.
type EventsListRoutinesTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *EventsListRoutinesTool) Definition() mcp.Tool {
	return mcp.NewTool("method_events_list_routines",
		mcp.WithDescription("List event routines configured in Method CRM."),
		mcp.WithTitleAnnotation("List Method CRM Event Routines"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithNumber("top", mcp.Description("Routines per page, 1-100 (default 20)")),
		mcp.WithNumber("skip", mcp.Description("Routines to skip for pagination (default 0)")),
		mcp.WithString("response_format", mcp.Description("'json' (default) or 'markdown'")),
	)
}

func (t *EventsListRoutinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, skip := clampPage(req.GetInt("top", defaultPageSize), req.GetInt("skip", 0))

	values, f := methodmcp.Query{Top: top, Skip: skip}.Values()
	if f != nil {
		return failureResult(f), nil
	}
	res := t.client.Get(ctx, eventRoutinesPath, values)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}

	routines, total, hasNext := parseList(res.Raw)
	page := pageInfo(total, len(routines), skip, top, hasNext)

	if req.GetString("response_format", formatJSON) == formatMarkdown {
		if len(routines) == 0 {
			return textResult("# Event Routines\n\nNo event routines configured."), nil
		}
		md := markdownList(routines, "Name",
			[]string{"Id", "Description", "Enabled", "TriggerConfig", "Actions", "CreatedDate", "LastTriggered"},
			"Event Routines")
		return textResult(md + paginationFooter(page)), nil
	}
	return textResult(jsonEnvelope(map[string]any{
		"routines":   routines,
		"pagination": page,
	}, "")), nil
}

// EventsGetRoutineTool fetches a single routine by id.
type EventsGetRoutineTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *EventsGetRoutineTool) Definition() mcp.Tool {
	return mcp.NewTool("method_events_get_routine",
		mcp.WithDescription("Get a Method CRM event routine by its id."),
		mcp.WithTitleAnnotation("Get Method CRM Event Routine"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("routine_id", mcp.Required(), mcp.Description("Id of the routine")),
	)
}

func (t *EventsGetRoutineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routineID, err := req.RequireString("routine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.Get(ctx, eventRoutinesPath+"/"+routineID, nil)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(res.Payload, "")), nil
}

// EventsDeleteRoutineTool removes a routine. Running instances finish
// before the routine disappears, so deletion is safe mid-trigger.
type EventsDeleteRoutineTool struct {
	client *methodmcp.Client
	log    *zap.Logger
}

func (t *EventsDeleteRoutineTool) Definition() mcp.Tool {
	return mcp.NewTool("method_events_delete_routine",
		mcp.WithDescription("Permanently delete a Method CRM event routine. The automation stops firing immediately."),
		mcp.WithTitleAnnotation("Delete Method CRM Event Routine"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("routine_id", mcp.Required(), mcp.Description("Id of the routine to delete")),
	)
}

func (t *EventsDeleteRoutineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routineID, err := req.RequireString("routine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := t.client.Delete(ctx, eventRoutinesPath+"/"+routineID)
	if !res.Ok() {
		return failureResult(res.Err), nil
	}
	return textResult(jsonEnvelope(map[string]any{"RoutineId": routineID}, "Event routine deleted successfully")), nil
}
