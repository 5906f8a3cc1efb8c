package types

// Action names understood by the dispatcher.
const (
	ActionCaptureScreen      = "capture_screen"
	ActionAnnotate           = "annotate"
	ActionMovePointer        = "move_pointer"
	ActionClick              = "click"
	ActionDoubleClick        = "double_click"
	ActionTripleClick        = "triple_click"
	ActionPressDown          = "press_down"
	ActionReleaseUp          = "release_up"
	ActionDrag               = "drag"
	ActionScroll             = "scroll"
	ActionPressKey           = "press_key"
	ActionHoldKey            = "hold_key"
	ActionReleaseKey         = "release_key"
	ActionTypeText           = "type_text"
	ActionGetSettings        = "get_settings"
	ActionSetSettings        = "set_settings"
	ActionGetInitialShortcut = "get_initial_shortcut"
	ActionGetPointer         = "get_pointer"
	ActionReprobeScale       = "reprobe_scale"
	ActionScriptStep         = "script_step"
	ActionEcho               = "echo"
)

// Actions lists every action the dispatcher must have a handler for.
var Actions = []string{
	ActionCaptureScreen, ActionAnnotate, ActionMovePointer,
	ActionClick, ActionDoubleClick, ActionTripleClick,
	ActionPressDown, ActionReleaseUp, ActionDrag, ActionScroll,
	ActionPressKey, ActionHoldKey, ActionReleaseKey, ActionTypeText,
	ActionGetSettings, ActionSetSettings, ActionGetInitialShortcut,
	ActionGetPointer, ActionReprobeScale, ActionScriptStep, ActionEcho,
}

// Outbound message kinds.
const (
	TypeResponse       = "response"
	TypeChunk          = "chunk"
	TypeStreamEnd      = "stream_end"
	TypeUpdateShortcut = "update-shortcut"
	TypeFrame          = "frame"
)

// Error codes carried by failed responses.
const (
	CodeCaptureUnavailable = "CaptureUnavailable"
	CodeNoFrameAvailable   = "NoFrameAvailable"
	CodeInjectionFailure   = "InjectionFailure"
	CodeInvalidAction      = "InvalidAction"
	CodeInternal           = "Internal"
)

// Request is an inbound action from a controller. Coordinates are canvas
// coordinates.
type Request struct {
	ID        string         `json:"id,omitempty"`
	Action    string         `json:"action"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	X1        int            `json:"x1"`
	Y1        int            `json:"y1"`
	X2        int            `json:"x2"`
	Y2        int            `json:"y2"`
	Button    string         `json:"button,omitempty"`
	Direction string         `json:"direction,omitempty"`
	Amount    int            `json:"amount,omitempty"`
	Key       string         `json:"key,omitempty"`
	Text      string         `json:"text,omitempty"`
	Message   string         `json:"message,omitempty"`
	Label     string         `json:"label,omitempty"`
	Monitor   int            `json:"monitor,omitempty"`
	Quality   int            `json:"quality,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// Message is anything sent back over a connection.
type Message interface {
	MessageType() string
}

// Response is the single reply to a non-streaming action.
type Response struct {
	Type     string         `json:"type"`
	ID       string         `json:"id,omitempty"`
	Action   string         `json:"action"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
	Image    string         `json:"image,omitempty"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Message  string         `json:"message,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	X        *int           `json:"x,omitempty"`
	Y        *int           `json:"y,omitempty"`
	Scale    *float64       `json:"scale,omitempty"`
}

func (Response) MessageType() string { return TypeResponse }

// Chunk is one fragment of a streamed reply.
type Chunk struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Action  string `json:"action"`
	Content string `json:"content"`
}

func (Chunk) MessageType() string { return TypeChunk }

// StreamEnd terminates a streamed reply. Error and Code are set when the
// stream was cut short.
type StreamEnd struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func (StreamEnd) MessageType() string { return TypeStreamEnd }

// ShortcutUpdate tells a shell to rebind its global toggle shortcut.
type ShortcutUpdate struct {
	Type     string `json:"type"`
	Shortcut string `json:"shortcut"`
}

func (ShortcutUpdate) MessageType() string { return TypeUpdateShortcut }

// ScreenUpdate is the outbound frame + cursor payload pushed to stream
// subscribers. Cursor coordinates are canvas coordinates.
type ScreenUpdate struct {
	Type   string `json:"type"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	MouseX int    `json:"mouseX"`
	MouseY int    `json:"mouseY"`
}

func (ScreenUpdate) MessageType() string { return TypeFrame }
