package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/copyleftdev/diffevo/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
	rpcRunNotFound    = -32001
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// runRef names the run a method operates on.
type runRef struct {
	ID string `json:"id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests. Params may be an object or a
// single-element array holding one.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	result, err := s.dispatch(r.Context(), request.Method, request.Params)
	if err != nil {
		code, message := rpcError(err)
		s.logger.Debug("RPC call failed",
			zap.String("method", request.Method),
			zap.Int("code", code),
			zap.Error(err),
		)
		s.respondWithError(w, code, message, request.ID)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

var errMethodNotFound = errors.New("method not found")

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "de.create":
		var req CreateRunRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.createRun(req)
	case "de.step":
		var req StepRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.stepRun(ctx, req.ID, req)
	case "de.status":
		var ref runRef
		if err := decodeParams(params, &ref); err != nil {
			return nil, err
		}
		return s.runStatus(ref.ID)
	case "de.population":
		var ref runRef
		if err := decodeParams(params, &ref); err != nil {
			return nil, err
		}
		return s.runPopulation(ref.ID)
	case "de.compare":
		var ref runRef
		if err := decodeParams(params, &ref); err != nil {
			return nil, err
		}
		return s.compareRun(ctx, ref.ID)
	case "de.delete":
		var ref runRef
		if err := decodeParams(params, &ref); err != nil {
			return nil, err
		}
		if err := s.deleteRun(ref.ID); err != nil {
			return nil, err
		}
		return map[string]string{"id": ref.ID, "status": "deleted"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errMethodNotFound, method)
	}
}

func decodeParams(params json.RawMessage, v interface{}) error {
	params = bytes.TrimSpace(params)
	if len(params) == 0 {
		return nil
	}
	if params[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(params, &list); err != nil {
			return errors.Join(errInvalidRequest, err)
		}
		if len(list) == 0 {
			return nil
		}
		if len(list) > 1 {
			return fmt.Errorf("%w: expected a single params object, got %d", errInvalidRequest, len(list))
		}
		params = list[0]
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errors.Join(errInvalidRequest, err)
	}
	return nil
}

func rpcError(err error) (int, string) {
	switch {
	case errors.Is(err, errMethodNotFound):
		return rpcMethodNotFound, "Method not found"
	case errors.Is(err, errRunNotFound):
		return rpcRunNotFound, err.Error()
	case errors.Is(err, errInvalidRequest), errors.Is(err, optimization.ErrConfiguration),
		errors.Is(err, optimization.ErrDimensionMismatch):
		return rpcInvalidParams, err.Error()
	default:
		return rpcServerError, err.Error()
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
