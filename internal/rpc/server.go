// Package rpc implements the local JSON-RPC 2.0 API of the wallet daemon.
//
// Every method is a thin call into the session controller; the server holds
// no wallet state of its own apart from prepared send plans.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/nova-wallet/config"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/session"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr     string
	wallet   *session.Controller
	networks *network.Registry
	plans    *planCache
	access   accessPolicy
	server   *http.Server
	ln       net.Listener
	logger   zerolog.Logger
}

// New creates a new RPC server over ctl. The rpcCfg parameter controls IP
// filtering and CORS. A zero-value RPCConfig allows all IPs and disables
// CORS. A nil registry means network.Default.
func New(addr string, ctl *session.Controller, networks *network.Registry, rpcCfg ...config.RPCConfig) *Server {
	if networks == nil {
		networks = network.Default
	}
	s := &Server{
		addr:     addr,
		wallet:   ctl,
		networks: networks,
		plans:    newPlanCache(planTTL, maxPlans),
		logger:   klog.WithComponent("rpc"),
	}

	if len(rpcCfg) > 0 {
		s.access = newAccessPolicy(rpcCfg[0].AllowedIPs, rpcCfg[0].CORSOrigins)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Sends wait for the broadcast and KDF work runs on unlock.
		WriteTimeout: 2 * time.Minute,
	}

	return s
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !s.access.permits(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	s.access.applyCORS(w, r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	req, rpcErr := readRequest(r)
	if rpcErr != nil {
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: idOf(req)})
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	resp.Result, resp.Error = s.dispatch(r.Context(), req)
	if resp.Error != nil {
		s.logger.Debug().Str("method", req.Method).Int("code", resp.Error.Code).Msg(resp.Error.Message)
	}
	writeJSON(w, resp)
}

// readRequest decodes and checks the JSON-RPC envelope. The returned
// request is non-nil whenever it was decoded, so errors can echo its ID.
func readRequest(r *http.Request) (*Request, *Error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, &Error{Code: CodeParseError, Message: "failed to read request body"}
	}
	if len(body) > maxBodySize {
		return nil, &Error{Code: CodeInvalidRequest, Message: "request body too large"}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "invalid JSON"}
	}
	if req.JSONRPC != "2.0" {
		return &req, &Error{Code: CodeInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}
	if req.Method == "" {
		return &req, &Error{Code: CodeInvalidRequest, Message: "method is required"}
	}
	return &req, nil
}

func idOf(req *Request) interface{} {
	if req == nil {
		return nil
	}
	return req.ID
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "wallet_getState":
		return s.handleWalletGetState(req)
	case "wallet_create":
		return s.handleWalletCreate(ctx, req)
	case "wallet_import":
		return s.handleWalletImport(ctx, req)
	case "wallet_verifyWords":
		return s.handleWalletVerifyWords(req)
	case "wallet_unlock":
		return s.handleWalletUnlock(ctx, req)
	case "wallet_lock":
		return s.handleWalletLock(req)
	case "wallet_reset":
		return s.handleWalletReset(ctx, req)
	case "wallet_clearError":
		return s.handleWalletClearError(req)
	case "wallet_addAccount":
		return s.handleWalletAddAccount(ctx, req)
	case "wallet_selectAccount":
		return s.handleWalletSelectAccount(req)
	case "wallet_selectNetwork":
		return s.handleWalletSelectNetwork(req)
	case "wallet_refresh":
		return s.handleWalletRefresh(ctx, req)
	case "wallet_getHistory":
		return s.handleWalletGetHistory(req)
	case "wallet_prepareSend":
		return s.handleWalletPrepareSend(ctx, req)
	case "wallet_confirmSend":
		return s.handleWalletConfirmSend(ctx, req)
	case "wallet_send":
		return s.handleWalletSend(ctx, req)
	case "network_list":
		return s.handleNetworkList(req)
	case "network_get":
		return s.handleNetworkGet(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

// parseOptionalParams is parseParams for methods whose params may be omitted.
func parseOptionalParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return nil
	}
	return parseParams(req, target)
}
