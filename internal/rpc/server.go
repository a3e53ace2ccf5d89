package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/webscope/internal/analyzer"
	"github.com/dgnsrekt/webscope/internal/api"
)

const protocolVersion = "2024-11-05"

// Server reads JSON-RPC requests line by line and writes one response per
// request. Notifications (requests without an id) get no response.
type Server struct {
	svc api.Service

	writeMu sync.Mutex
	out     io.Writer
}

// NewServer builds a pipe server around the shared tool service.
func NewServer(svc api.Service, out io.Writer) *Server {
	return &Server{svc: svc, out: out}
}

// Serve processes requests until the input is exhausted or ctx is canceled.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			slog.Warn("unparsable rpc request", "error", err)
			s.reply(response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
			continue
		}

		resp := s.dispatch(ctx, &req)
		if req.ID == nil {
			continue
		}
		resp.ID = req.ID
		s.reply(resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *request) response {
	slog.Debug("rpc request", "method", req.Method)

	switch req.Method {
	case "initialize":
		result := initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: "webscope", Version: "1.0.0"},
		}
		return okResponse(result)
	case "notifications/initialized", "initialized":
		return okResponse(struct{}{})
	case "tools/list":
		return okResponse(toolsListResult{Tools: toolCatalog()})
	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(codeInvalidParams, "invalid tool call params")
		}
		return s.callTool(ctx, params)
	default:
		return errResponse(codeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func okResponse(result any) response {
	data, err := json.Marshal(result)
	if err != nil {
		return errResponse(codeInternal, "result marshal failed")
	}
	return response{JSONRPC: "2.0", Result: data}
}

func errResponse(code int, message string) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message}}
}

// toolResponse wraps a payload in the uniform text content envelope.
func toolResponse(payload any) response {
	data, err := json.Marshal(payload)
	if err != nil {
		return errResponse(codeInternal, "payload marshal failed")
	}
	return okResponse(toolCallResult{Content: []contentBlock{{Type: "text", Text: string(data)}}})
}

// mapToolErr translates the orchestrator's error taxonomy into JSON-RPC
// error codes.
func mapToolErr(err error) response {
	var coded *analyzer.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case analyzer.CodeValidation, analyzer.CodeNotFound:
			return errResponse(codeInvalidParams, coded.Message)
		case analyzer.CodeNavTimeout:
			return errResponse(codeTimeout, coded.Message)
		default:
			return errResponse(codeInternal, coded.Message)
		}
	}
	return errResponse(codeInternal, err.Error())
}

func (s *Server) reply(resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("rpc response marshal failed", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		slog.Error("rpc response write failed", "error", err)
	}
}
