package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// decodeResponse turns a completed HTTP response into either a single
// result or a lazy result stream, keyed on the declared content type.
// cancel is wired into the stream's Close for the streaming encodings; for
// a plain JSON response the body is consumed eagerly and cancel is invoked
// before returning.
func decodeResponse(resp *http.Response, cancel func(), logger logging.Logger) (*Response, error) {
	contentType := resp.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "text/event-stream":
		return &Response{Stream: decodeEventStream(resp.Body, cancel, logger)}, nil
	case "multipart/mixed":
		boundary := params["boundary"]
		if boundary == "" {
			cancel()
			return nil, errors.Decode("multipart/mixed", io.ErrUnexpectedEOF).
				WithDetail("missing boundary parameter")
		}
		return &Response{Stream: decodeMultipart(resp.Body, boundary, cancel, logger)}, nil
	default:
		defer cancel()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Decode("application/json", err)
		}
		var result graphql.Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, errors.Decode("application/json", err)
		}
		return &Response{Result: &result}, nil
	}
}

// decodeEventStream decodes server-sent events into a result stream. The
// sequence is lazy and ordered; it terminates on stream close, a terminal
// "complete" event, or a framing error. A live subscription held open by
// the server yields an unbounded sequence.
func decodeEventStream(body io.ReadCloser, cancel func(), logger logging.Logger) *Stream {
	stream := NewStream(func() {
		body.Close()
		if cancel != nil {
			cancel()
		}
	})

	go func() {
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 4096), 1<<20)

		var dataLines []string
		eventType := ""

		flush := func() bool {
			defer func() {
				dataLines = nil
				eventType = ""
			}()
			if len(dataLines) == 0 {
				return true
			}
			if eventType == "complete" {
				return false
			}
			payload := strings.Join(dataLines, "\n")
			var result graphql.Result
			if err := json.Unmarshal([]byte(payload), &result); err != nil {
				stream.Fail(errors.Decode("text/event-stream", err))
				return false
			}
			return stream.Emit(&result)
		}

		for scanner.Scan() {
			line := strings.TrimSuffix(scanner.Text(), "\r")

			if line == "" {
				if !flush() {
					stream.End()
					return
				}
				continue
			}
			// Comment lines are heartbeats.
			if strings.HasPrefix(line, ":") {
				continue
			}
			switch {
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			case strings.HasPrefix(line, "event:"):
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				if eventType == "complete" && len(dataLines) == 0 {
					// graphql-sse sends a bare complete event.
					stream.End()
					return
				}
			case strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
				// Resumption metadata; nothing to do for a one-shot stream.
			default:
				logger.Debug("ignoring unknown SSE line", logging.String("line", line))
			}
		}

		// Trailing event without a final blank line.
		if len(dataLines) > 0 {
			flush()
		}
		if err := scanner.Err(); err != nil {
			stream.Fail(errors.Decode("text/event-stream", err))
			return
		}
		stream.End()
	}()

	return stream
}

// multipartEnvelope is one multipart/mixed part. Servers either send a
// plain execution result or an incremental-delivery envelope carrying a
// batch of patches.
type multipartEnvelope struct {
	graphql.Result
	Incremental []*graphql.Result `json:"incremental,omitempty"`
}

// decodeMultipart decodes a multipart/mixed incremental response. Each
// part (or each element of a part's incremental batch) is surfaced as its
// own result, in server order; merging patches into a base result is the
// consumer's concern. The sequence is finite, ending when the server
// closes the body or sends the terminating boundary.
func decodeMultipart(body io.ReadCloser, boundary string, cancel func(), logger logging.Logger) *Stream {
	stream := NewStream(func() {
		body.Close()
		if cancel != nil {
			cancel()
		}
	})

	go func() {
		reader := multipart.NewReader(body, boundary)
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				stream.End()
				return
			}
			if err != nil {
				// The body closing mid-read is normal teardown after Close.
				select {
				case <-stream.closed:
				default:
					stream.Fail(errors.Decode("multipart/mixed", err))
				}
				return
			}

			payload, err := io.ReadAll(part)
			if err != nil {
				stream.Fail(errors.Decode("multipart/mixed", err))
				return
			}
			if len(payload) == 0 {
				continue
			}

			var envelope multipartEnvelope
			if err := json.Unmarshal(payload, &envelope); err != nil {
				stream.Fail(errors.Decode("multipart/mixed", err))
				return
			}

			if len(envelope.Incremental) > 0 {
				for _, patch := range envelope.Incremental {
					if !stream.Emit(patch) {
						return
					}
				}
				continue
			}
			if !stream.Emit(&envelope.Result) {
				return
			}
		}
	}()

	return stream
}
