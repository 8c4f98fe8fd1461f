// Package server exposes arith evaluation over HTTP/3.
//
//	POST /eval    {"expression": "1 + 2", "tree": false}
//	GET  /healthz
//
// A successful evaluation answers 200 with every statement value; a lexical,
// syntax or arithmetic failure answers 400 with a located diagnostic.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go/http3"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/arith/internal/cli"
	"github.com/orizon-lang/arith/internal/diagnostic"
	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/pipeline"
)

// MaxRequestBytes bounds the size of an /eval request body.
const MaxRequestBytes = 1 << 20

// MaxTreeBytes bounds the syntax tree returned for "tree": true.
const MaxTreeBytes = 4 << 20

// EvalRequest is the body of POST /eval.
type EvalRequest struct {
	Expression string `json:"expression"`
	Tree       bool   `json:"tree,omitempty"`
}

// EvalResponse is the body of a successful /eval.
type EvalResponse struct {
	Values []int64 `json:"values"`
	Value  *int64  `json:"value,omitempty"` // last statement; absent for empty input
	Tree   string  `json:"tree,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error *diagnostic.Diagnostic `json:"error"`
}

// Server wraps the http3.Server lifecycle.
type Server struct {
	config *cli.Config
	logger *cli.Logger
	srv    *http3.Server
	pc     net.PacketConn

	closing atomic.Bool
}

// New creates a server for addr that evaluates with config.
func New(config *cli.Config, tlsCfg *tls.Config, logger *cli.Logger) *Server {
	if config == nil {
		config = cli.DefaultConfig()
	}
	if logger == nil {
		logger = cli.NewLogger(config.Verbose, config.Debug)
	}
	s := &Server{config: config, logger: logger}
	s.srv = &http3.Server{Addr: config.Server.Addr, TLSConfig: tlsCfg, Handler: s.Handler()}
	return s
}

// Handler returns the routing table. It is transport independent, so it
// can also be mounted on an HTTP/1 or HTTP/2 server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/eval", s.handleEval)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, diagnostic.NewDiagnostic().Error().
			Code("METHOD_NOT_ALLOWED").Message(r.Method+" is not supported").Build())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": cli.Version})
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, diagnostic.NewDiagnostic().Error().
			Code("METHOD_NOT_ALLOWED").Message(r.Method+" is not supported").Build())
		return
	}

	var req EvalRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, diagnostic.NewDiagnostic().Error().
			Category(errors.CategoryValidation).Code("BAD_REQUEST").
			Message(fmt.Sprintf("invalid request body: %v", err)).Build())
		return
	}

	var opts []pipeline.RunnerOption
	if req.Tree {
		opts = append(opts, pipeline.WithTreeLimit(MaxTreeBytes))
	}
	opts = append(opts, pipeline.WithLogger(s.logger))

	result, err := pipeline.New(s.config, opts...).Run(r.Context(), "", req.Expression)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return
		}
		s.logger.Debug("eval %q: %v", req.Expression, err)
		writeError(w, http.StatusBadRequest, diagnostic.FromError(err))
		return
	}

	resp := EvalResponse{Values: result.Values, Tree: result.Tree}
	if resp.Values == nil {
		resp.Values = []int64{}
	}
	if last, ok := result.Last(); ok {
		resp.Value = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, diag *diagnostic.Diagnostic) {
	writeJSON(w, status, ErrorResponse{Error: diag})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Listen binds the UDP socket. An addr ending in ":0" picks an ephemeral
// port; the bound address is returned.
func (s *Server) Listen() (string, error) {
	pc, err := net.ListenPacket("udp", s.srv.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.pc = pc
	return pc.LocalAddr().String(), nil
}

// Serve handles requests until ctx is done. It binds first when Listen has
// not been called.
func (s *Server) Serve(ctx context.Context) error {
	if s.pc == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("serving HTTP/3 on %s", s.pc.LocalAddr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.srv.Serve(s.pc)
		if s.closing.Load() {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Close()
	})
	return g.Wait()
}

// Close stops the server and releases the socket.
func (s *Server) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := s.srv.Close()
	if s.pc != nil {
		if cerr := s.pc.Close(); err == nil && !stderrors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	return err
}

// Client returns an http.Client using the HTTP/3 transport with the given
// TLS config.
func Client(tlsCfg *tls.Config, timeout time.Duration) *http.Client {
	tr := &http3.Transport{TLSClientConfig: tlsCfg}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// CloseClient releases the transport of a client built by Client.
func CloseClient(c *http.Client) {
	if tr, ok := c.Transport.(*http3.Transport); ok {
		_ = tr.Close()
	}
}
