package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/formatter"
	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/logging"
)

type parseRequest struct {
	Source  string                  `json:"source"`
	Options *schemadsl.ParseOptions `json:"options,omitempty"`
}

type formatRequest struct {
	Source  string                  `json:"source"`
	Format  string                  `json:"format"` // dbml (default), markdown or text
	Options *schemadsl.ParseOptions `json:"options,omitempty"`
}

type tokensResponse struct {
	Tokens []lexer.Token            `json:"tokens"`
	Errors []*diagnostic.ParseError `json:"errors"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !readJSON(w, r, &req) {
		return
	}

	result := schemadsl.Parse(req.Source, s.parseOptions(req.Options))
	logging.FromContext(r.Context()).Debug("parsed",
		"success", result.Success,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"tokens", result.Metadata.TokenCount)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !readJSON(w, r, &req) {
		return
	}

	tokens, errs := schemadsl.Tokenize(req.Source)
	if errs == nil {
		errs = []*diagnostic.ParseError{}
	}
	writeJSON(w, http.StatusOK, tokensResponse{Tokens: tokens, Errors: errs})
}

// handleFormat parses the source and writes it back in the requested format.
// A source that does not yield a schema gets 422 with the parse result.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !readJSON(w, r, &req) {
		return
	}

	format := req.Format
	if format == "" {
		format = formatter.FormatDBML
	}
	var buf bytes.Buffer
	if _, err := formatter.New(format, &buf); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := schemadsl.Parse(req.Source, s.parseOptions(req.Options))
	if result.Schema == nil {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	if err := schemadsl.FormatSchema(result.Schema, &schemadsl.OutputOptions{Writer: &buf, Format: format}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == formatter.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// parseOptions fills unset request options from the server defaults and caps
// the timeout at the server's.
func (s *Server) parseOptions(requested *schemadsl.ParseOptions) *schemadsl.ParseOptions {
	opts := s.cfg.Parse
	if requested == nil {
		return &opts
	}

	limit := opts.Timeout
	opts = *requested
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = s.cfg.Parse.MaxErrors
	}
	if opts.Timeout <= 0 || opts.Timeout > limit {
		opts.Timeout = limit
	}
	return &opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// readJSON decodes the body into v, writing the error response itself when
// decoding fails.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
