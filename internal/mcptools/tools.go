package mcptools

import (
	"deskrelay/internal/types"

	"github.com/mark3labs/mcp-go/mcp"
)

func point(desc string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithNumber("x", mcp.Description("Canvas X coordinate (0-1279)"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Canvas Y coordinate (0-719)"), mcp.Required()),
	}
}

func withButton(opts []mcp.ToolOption) []mcp.ToolOption {
	return append(opts, mcp.WithString("button", mcp.Description("Mouse button: left, right, middle (default left)")))
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool(types.ActionCaptureScreen,
		mcp.WithDescription("Capture the screen as a 1280x720 JPEG. All coordinates used by other tools refer to this canvas."),
		mcp.WithNumber("monitor", mcp.Description("Monitor index (default primary)")),
		mcp.WithNumber("quality", mcp.Description("JPEG quality 1-100")),
	))
	s.add(mcp.NewTool(types.ActionAnnotate, append(point("Mark a point on the last captured screen"),
		mcp.WithString("label", mcp.Description("Text drawn next to the marker")),
		mcp.WithNumber("quality", mcp.Description("JPEG quality 1-100")),
	)...))
	s.add(mcp.NewTool(types.ActionMovePointer, point("Move the pointer")...))
	s.add(mcp.NewTool(types.ActionClick, withButton(point("Click at a point"))...))
	s.add(mcp.NewTool(types.ActionDoubleClick, withButton(point("Double-click at a point"))...))
	s.add(mcp.NewTool(types.ActionTripleClick, withButton(point("Triple-click at a point"))...))
	s.add(mcp.NewTool(types.ActionPressDown, withButton(point("Move to a point and hold a mouse button"))...))
	s.add(mcp.NewTool(types.ActionReleaseUp, withButton(point("Move to a point and release a mouse button"))...))
	s.add(mcp.NewTool(types.ActionDrag,
		mcp.WithDescription("Drag with the left button from (x1, y1) to (x2, y2)"),
		mcp.WithNumber("x1", mcp.Required()),
		mcp.WithNumber("y1", mcp.Required()),
		mcp.WithNumber("x2", mcp.Required()),
		mcp.WithNumber("y2", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionScroll, append(point("Scroll at a point"),
		mcp.WithString("direction", mcp.Description("Scroll direction: up, down, left, right"), mcp.Required()),
		mcp.WithNumber("amount", mcp.Description("Scroll notches (default 1)")),
	)...))
	s.add(mcp.NewTool(types.ActionPressKey,
		mcp.WithDescription("Press a key or a combination such as ctrl+shift+a"),
		mcp.WithString("key", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionHoldKey,
		mcp.WithDescription("Hold a key (or every key of a combination) down"),
		mcp.WithString("key", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionReleaseKey,
		mcp.WithDescription("Release a held key"),
		mcp.WithString("key", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionTypeText,
		mcp.WithDescription("Type text verbatim, one character at a time"),
		mcp.WithString("text", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionGetSettings, mcp.WithDescription("Read the settings")))
	s.add(mcp.NewTool(types.ActionSetSettings,
		mcp.WithDescription("Merge values into the settings"),
		mcp.WithObject("settings", mcp.Required()),
	))
	s.add(mcp.NewTool(types.ActionGetInitialShortcut, mcp.WithDescription("Read the chat toggle shortcut")))
	s.add(mcp.NewTool(types.ActionGetPointer, mcp.WithDescription("Read the pointer position in canvas coordinates")))
	s.add(mcp.NewTool(types.ActionReprobeScale,
		mcp.WithDescription("Detect the display scale factor again"),
		mcp.WithNumber("monitor"),
	))
	s.add(mcp.NewTool(types.ActionScriptStep, mcp.WithDescription("Play the next scripted reply")))
	s.add(mcp.NewTool(types.ActionEcho,
		mcp.WithDescription("Echo a message back in upper case"),
		mcp.WithString("message"),
	))
}
