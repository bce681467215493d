package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported document format %q (want .json, .toml, .yaml)", filepath.Ext(path))
}

// ReadDocument decodes a document in the given format from r and validates it.
//
// The three formats share one schema:
//
//	{
//	  "title": "Work diary 2024-03-01",
//	  "sections": [
//	    {"kind": "heading", "text": "Work diary"},
//	    {"kind": "table", "columns": ["Item", "Hours"], "rows": [["Drill", "6"]]},
//	    {"kind": "signatures", "signatures": [{"role": "Operator"}]}
//	  ]
//	}
//
// Decoding errors and validation failures carry ErrCodeInvalidDocument.
// ReadDocument does not close r.
func ReadDocument(r io.Reader, format Format) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var d document.Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&d)
	case FormatTOML:
		_, err = toml.Decode(string(data), &d)
	case FormatYAML:
		err = yaml.Unmarshal(data, &d)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported document format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode %s", format)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ImportDocument reads the document file at path. The format is taken from
// the file extension.
func ImportDocument(path string) (*document.Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f, format)
}
