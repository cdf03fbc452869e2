package mcp

// Tool inputs. Fields without omitempty are required by the generated schema.

// NewInput is the webview_new tool input.
type NewInput struct {
	Title     string `json:"title" jsonschema:"Window title"`
	URL       string `json:"url" jsonschema:"Page URL to load"`
	Width     int32  `json:"width" jsonschema:"Initial width in pixels"`
	Height    int32  `json:"height" jsonschema:"Initial height in pixels"`
	Resizable bool   `json:"resizable,omitempty" jsonschema:"Allow the user to resize the window (default: false)"`
	Debug     bool   `json:"debug,omitempty" jsonschema:"Route page console output to the daemon log (default: false)"`
	Frameless bool   `json:"frameless,omitempty" jsonschema:"Create the window without decorations (default: false)"`
}

// IDInput names a window.
type IDInput struct {
	ID uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
}

// EvalInput is the webview_eval tool input.
type EvalInput struct {
	ID uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
	JS string `json:"js" jsonschema:"JavaScript source to run in the page"`
}

// SetColorInput is the webview_set_color tool input.
type SetColorInput struct {
	ID uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
	R  uint8  `json:"r" jsonschema:"Red channel 0-255"`
	G  uint8  `json:"g" jsonschema:"Green channel 0-255"`
	B  uint8  `json:"b" jsonschema:"Blue channel 0-255"`
	A  uint8  `json:"a" jsonschema:"Alpha channel 0-255"`
}

// SetTitleInput is the webview_set_title tool input.
type SetTitleInput struct {
	ID    uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
	Title string `json:"title" jsonschema:"New window title"`
}

// SetFullscreenInput is the webview_set_fullscreen tool input.
type SetFullscreenInput struct {
	ID         uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
	Fullscreen bool   `json:"fullscreen" jsonschema:"true to enter fullscreen, false to leave it"`
}

// LoopInput is the webview_loop tool input.
type LoopInput struct {
	ID       uint32 `json:"id" jsonschema:"Window id returned by webview_new"`
	Blocking bool   `json:"blocking,omitempty" jsonschema:"Wait for at least one event instead of stepping once (default: false)"`
}

// StatusInput takes no arguments.
type StatusInput struct{}
