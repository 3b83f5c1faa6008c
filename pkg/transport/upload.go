package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
)

// encodeMultipartForm writes a GraphQL multipart-request body into buf and
// returns the content type carrying the boundary. The layout follows the
// multipart request convention: an `operations` field holding the JSON
// request with file slots nulled, a `map` field indexing each numbered
// file field to its path in the variables structure, then one field per
// file.
//
// File resolvers are settled here, before any form bytes are written, so
// a deferred upload that fails never produces a half-built body.
func encodeMultipartForm(ctx context.Context, buf *bytes.Buffer, wire wireRequest, variables map[string]interface{}) (string, error) {
	cleaned, files, err := graphql.ExtractFiles(ctx, variables)
	if err != nil {
		return "", errors.Config("failed to extract file variables: " + err.Error())
	}
	wire.Variables = cleaned

	operations, err := json.Marshal(wire)
	if err != nil {
		return "", errors.Config("failed to encode operations: " + err.Error())
	}

	fileMap := make(map[string][]string, len(files))
	for i, f := range files {
		fileMap[strconv.Itoa(i)] = []string{f.Path}
	}
	mapJSON, err := json.Marshal(fileMap)
	if err != nil {
		return "", errors.Config("failed to encode file map: " + err.Error())
	}

	w := multipart.NewWriter(buf)
	if err := w.WriteField("operations", string(operations)); err != nil {
		return "", errors.Config("failed to write operations field: " + err.Error())
	}
	if err := w.WriteField("map", string(mapJSON)); err != nil {
		return "", errors.Config("failed to write map field: " + err.Error())
	}

	for i, f := range files {
		part, err := createFilePart(w, strconv.Itoa(i), f.Upload)
		if err != nil {
			return "", err
		}
		if f.Upload.File != nil {
			if _, err := io.Copy(part, f.Upload.File); err != nil {
				return "", errors.Config(fmt.Sprintf("failed to write file %d (%s): %v", i, f.Path, err))
			}
		}
	}

	if err := w.Close(); err != nil {
		return "", errors.Config("failed to finalize multipart body: " + err.Error())
	}
	return w.FormDataContentType(), nil
}

func createFilePart(w *multipart.Writer, fieldName string, up graphql.Upload) (io.Writer, error) {
	filename := up.Filename
	if filename == "" {
		filename = "blob"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(fieldName), escapeQuotes(filename)))
	if up.ContentType != "" {
		h.Set("Content-Type", up.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, errors.Config("failed to create file part: " + err.Error())
	}
	return part, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
