package server

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dshills/patchkit/internal/diagnose"
	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/gate"
	"github.com/dshills/patchkit/internal/logging"
	"github.com/dshills/patchkit/internal/txn"
)

// maxLineSize bounds a single request line. Requests carry whole search
// and replacement texts, so the limit is generous.
const maxLineSize = 16 * 1024 * 1024

// Server runs the request loop over a reader/writer pair.
type Server struct {
	gate       *gate.Gate
	coord      *txn.Coordinator
	classifier *diagnose.Classifier
	log        *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server from its collaborators.
func New(g *gate.Gate, coord *txn.Coordinator, classifier *diagnose.Classifier, opts ...Option) *Server {
	s := &Server{
		gate:       g,
		coord:      coord,
		classifier: classifier,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads one JSON request per line from r and writes one JSON
// response per line to w, until r is exhausted or ctx is cancelled.
// A malformed line produces an error response, never a crash.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.Handle(ctx, line)
		if _, err := w.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}

	return scanner.Err()
}

// Handle processes one request line and returns the response line.
func (s *Server) Handle(ctx context.Context, line []byte) []byte {
	id, reqs, err := parseRequest(line)
	if err != nil {
		s.log.Warn("malformed request", "error", err)
		return s.failure(id, "", &diagnose.Descriptor{
			Code:      diagnose.CodeInvalidRequest,
			Message:   err.Error(),
			Retryable: diagnose.CodeInvalidRequest.Retryable(),
			Hints:     diagnose.CodeInvalidRequest.Hints(),
		}, nil)
	}

	gated, err := s.gate.Normalize(ctx, reqs)
	if err != nil {
		s.log.Warn("request rejected", "error", err)
		return s.failure(id, "", s.classifier.Classify(err, "", nil), nil)
	}

	res, err := s.coord.ApplyAll(ctx, gated)
	if err != nil {
		desc := s.classifier.ClassifyTxn(res, err, gated)
		return s.failure(id, res.TxnID, desc, res.Files)
	}

	out, buildErr := buildSuccess(id, res)
	if buildErr != nil {
		// Rendering failed after a durable commit; report the commit
		// anyway with a minimal envelope.
		s.log.Error("response build failed", "error", buildErr)
		return []byte(fmt.Sprintf(`{"ok":true,"txn":%q}`, res.TxnID))
	}
	return out
}

// failure renders a failure response, falling back to a minimal envelope
// if rendering itself fails.
func (s *Server) failure(id, txnID string, desc *diagnose.Descriptor, files []txn.FileResult) []byte {
	out, err := buildFailure(id, txnID, desc, files)
	if err != nil {
		s.log.Error("response build failed", "error", err)
		return []byte(`{"ok":false,"error":{"code":"unknown","message":"internal response error","retryable":false,"hints":["Inspect the server log"]}}`)
	}
	return out
}

// RequestsFromJSON parses a request document (the same shape the stdio
// loop accepts) outside the loop, for one-shot CLI use.
func RequestsFromJSON(data []byte) (string, []edit.Request, error) {
	return parseRequest(bytes.TrimSpace(data))
}
