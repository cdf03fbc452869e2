package bridge

import "github.com/1broseidon/webviewd/internal/registry"

// Operation names as registered with the host.
const (
	OpNew           = "webview_new"
	OpExit          = "webview_exit"
	OpEval          = "webview_eval"
	OpSetColor      = "webview_set_color"
	OpSetTitle      = "webview_set_title"
	OpSetFullscreen = "webview_set_fullscreen"
	OpLoop          = "webview_loop"
	OpGetUserData   = "webview_get_user_data"
)

// OpNames lists every operation in registration order.
var OpNames = []string{
	OpNew,
	OpExit,
	OpEval,
	OpSetColor,
	OpSetTitle,
	OpSetFullscreen,
	OpLoop,
	OpGetUserData,
}

// NewParams is the webview_new request.
type NewParams struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Width     int32  `json:"width"`
	Height    int32  `json:"height"`
	Resizable bool   `json:"resizable"`
	Debug     bool   `json:"debug"`
	Frameless bool   `json:"frameless"`
}

var newFields = []string{"title", "url", "width", "height", "resizable", "debug", "frameless"}

// NewResult is the webview_new ok payload.
type NewResult struct {
	ID registry.ID `json:"id"`
}

// IDParams is the request of operations that only name an instance
// (webview_exit, webview_get_user_data).
type IDParams struct {
	ID registry.ID `json:"id"`
}

var idFields = []string{"id"}

// EvalParams is the webview_eval request.
type EvalParams struct {
	ID registry.ID `json:"id"`
	JS string      `json:"js"`
}

var evalFields = []string{"id", "js"}

// SetColorParams is the webview_set_color request.
type SetColorParams struct {
	ID registry.ID `json:"id"`
	R  uint8       `json:"r"`
	G  uint8       `json:"g"`
	B  uint8       `json:"b"`
	A  uint8       `json:"a"`
}

var setColorFields = []string{"id", "r", "g", "b", "a"}

// SetTitleParams is the webview_set_title request.
type SetTitleParams struct {
	ID    registry.ID `json:"id"`
	Title string      `json:"title"`
}

var setTitleFields = []string{"id", "title"}

// SetFullscreenParams is the webview_set_fullscreen request.
type SetFullscreenParams struct {
	ID         registry.ID `json:"id"`
	Fullscreen bool        `json:"fullscreen"`
}

var setFullscreenFields = []string{"id", "fullscreen"}

// LoopParams is the webview_loop request. Blocking is an integer flag:
// 0 steps once, anything else waits for events.
type LoopParams struct {
	ID       registry.ID `json:"id"`
	Blocking int32       `json:"blocking"`
}

var loopFields = []string{"id", "blocking"}

// LoopResult is the webview_loop ok payload. Code is passed through from the
// native loop step unchanged: 0 to continue, non-zero when the window should
// no longer be driven.
type LoopResult struct {
	Code int `json:"code"`
}
