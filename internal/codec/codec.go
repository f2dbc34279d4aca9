// Package codec turns typed values into the bytes stored on disk and back.
package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrEncodeFailed = errors.New("codec: encode failed")
	ErrDecodeFailed = errors.New("codec: decode failed")
)

// Codec marshals values. Implementations must wrap failures with
// ErrEncodeFailed or ErrDecodeFailed.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// XML is the default codec. It writes an XML declaration and indented
// elements, the format existing store files use.
type XML struct{}

func (XML) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (XML) Unmarshal(data []byte, v any) error {
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return nil
}

// YAML stores values as YAML documents.
type YAML struct{}

func (YAML) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

func (YAML) Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return nil
}

// RawXML keeps an arbitrary XML document intact, including the root element
// name and its attributes. It lets tools handle store entries without knowing
// their schema.
type RawXML struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}
