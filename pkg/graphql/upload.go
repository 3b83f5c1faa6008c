package graphql

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Upload is a file-like variable value. Any variable whose value is an
// Upload, *Upload, UploadResolver, or bare io.Reader switches the HTTP
// executor to multipart/form-data encoding.
type Upload struct {
	File        io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// UploadResolver defers producing an upload until encoding time. Resolvers
// are settled, sequentially and in path order, before the multipart form is
// constructed.
type UploadResolver func(ctx context.Context) (Upload, error)

// IsFileValue reports whether v is a file-like value.
func IsFileValue(v interface{}) bool {
	switch v.(type) {
	case Upload, *Upload, UploadResolver:
		return true
	}
	_, ok := v.(io.Reader)
	return ok
}

// ContainsFiles reports whether any value in variables, at any depth, is
// file-like.
func ContainsFiles(variables map[string]interface{}) bool {
	for _, v := range variables {
		if containsFilesValue(v) {
			return true
		}
	}
	return false
}

func containsFilesValue(v interface{}) bool {
	if IsFileValue(v) {
		return true
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return ContainsFiles(t)
	case []interface{}:
		for _, item := range t {
			if containsFilesValue(item) {
				return true
			}
		}
	}
	return false
}

// ExtractedFile is one file pulled out of the variables structure. Path is
// the dotted location of the value under the request, e.g. "variables.avatar"
// or "variables.files.0", matching the `map` field of the GraphQL
// multipart request convention.
type ExtractedFile struct {
	Path   string
	Upload Upload
}

// ExtractFiles walks variables, resolves every file-like value, and returns
// a copy of the structure with each file slot nulled out plus the ordered
// list of extracted files. Extraction order is deterministic: object keys
// are visited sorted, list elements in index order.
func ExtractFiles(ctx context.Context, variables map[string]interface{}) (map[string]interface{}, []ExtractedFile, error) {
	cleaned := make(map[string]interface{}, len(variables))
	var files []ExtractedFile

	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := extractValue(ctx, variables[k], "variables."+k, &files)
		if err != nil {
			return nil, nil, err
		}
		cleaned[k] = v
	}
	return cleaned, files, nil
}

func extractValue(ctx context.Context, v interface{}, path string, files *[]ExtractedFile) (interface{}, error) {
	if IsFileValue(v) {
		up, err := resolveUpload(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolving file at %s: %w", path, err)
		}
		*files = append(*files, ExtractedFile{Path: path, Upload: up})
		return nil, nil
	}

	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cv, err := extractValue(ctx, t[k], path+"."+k, files)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			cv, err := extractValue(ctx, item, fmt.Sprintf("%s.%d", path, i), files)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	return v, nil
}

func resolveUpload(ctx context.Context, v interface{}) (Upload, error) {
	switch t := v.(type) {
	case Upload:
		return t, nil
	case *Upload:
		if t == nil {
			return Upload{}, fmt.Errorf("nil *Upload value")
		}
		return *t, nil
	case UploadResolver:
		return t(ctx)
	case io.Reader:
		return Upload{File: t}, nil
	}
	return Upload{}, fmt.Errorf("value of type %T is not file-like", v)
}
