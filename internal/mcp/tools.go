package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

func (s *Server) handleNew(ctx context.Context, _ *mcpsdk.CallToolRequest, args NewInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpNew, bridge.NewParams{
		Title:     args.Title,
		URL:       args.URL,
		Width:     args.Width,
		Height:    args.Height,
		Resizable: args.Resizable,
		Debug:     args.Debug,
		Frameless: args.Frameless,
	})
}

func (s *Server) handleExit(ctx context.Context, _ *mcpsdk.CallToolRequest, args IDInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpExit, bridge.IDParams{ID: registry.ID(args.ID)})
}

func (s *Server) handleEval(ctx context.Context, _ *mcpsdk.CallToolRequest, args EvalInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpEval, bridge.EvalParams{ID: registry.ID(args.ID), JS: args.JS})
}

func (s *Server) handleSetColor(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetColorInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpSetColor, bridge.SetColorParams{
		ID: registry.ID(args.ID), R: args.R, G: args.G, B: args.B, A: args.A,
	})
}

func (s *Server) handleSetTitle(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetTitleInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpSetTitle, bridge.SetTitleParams{ID: registry.ID(args.ID), Title: args.Title})
}

func (s *Server) handleSetFullscreen(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetFullscreenInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpSetFullscreen, bridge.SetFullscreenParams{ID: registry.ID(args.ID), Fullscreen: args.Fullscreen})
}

func (s *Server) handleLoop(ctx context.Context, _ *mcpsdk.CallToolRequest, args LoopInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpLoop, bridge.LoopParams{
		ID:       registry.ID(args.ID),
		Blocking: int32(platform.Flag(args.Blocking)),
	})
}

func (s *Server) handleGetUserData(ctx context.Context, _ *mcpsdk.CallToolRequest, args IDInput) (*mcpsdk.CallToolResult, any, error) {
	return s.forward(ctx, bridge.OpGetUserData, bridge.IDParams{ID: registry.ID(args.ID)})
}

func (s *Server) handleStatus(ctx context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, any, error) {
	st, err := s.caller.Status(ctx)
	if err != nil {
		return nil, nil, err
	}
	return envelopeResult(bridge.EncodeOK(&statusResult{
		Backend:       st.Backend,
		Instances:     st.Instances,
		UptimeSeconds: int64(st.Uptime.Seconds()),
	})), nil, nil
}

type statusResult struct {
	Backend       string        `json:"backend"`
	Instances     []registry.ID `json:"instances"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// forward encodes params, runs op on the caller and wraps the envelope.
// Transport failures (host closed, cancelled) become tool errors; operation
// failures come back as an err envelope with IsError set.
func (s *Server) forward(ctx context.Context, op string, params any) (*mcpsdk.CallToolResult, any, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}
	out, err := s.caller.Call(ctx, op, payload)
	if err != nil {
		s.logger.Warn("call failed", zap.String("op", op), zap.Error(err))
		return nil, nil, err
	}
	return envelopeResult(out), nil, nil
}

func envelopeResult(envelope []byte) *mcpsdk.CallToolResult {
	var head struct {
		Err *string `json:"err"`
	}
	_ = json.Unmarshal(envelope, &head)
	return &mcpsdk.CallToolResult{
		IsError: head.Err != nil,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(envelope)},
		},
		StructuredContent: json.RawMessage(envelope),
	}
}
