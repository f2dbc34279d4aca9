package repostore

import (
	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/keygen"
	"github.com/aweris/repostore/internal/location"
	"github.com/aweris/repostore/internal/store"
)

// ConfigStore holds a single value.
type ConfigStore[T any] = store.ConfigStore[T]

// DataStore holds values addressed by id.
type DataStore[T any] = store.DataStore[T]

// BlobStore holds binary streams addressed by id.
type BlobStore = store.BlobStore

// Blob is one binary entry of a BlobStore.
type Blob = store.Blob

// Kind is the type of a store.
type Kind = location.Kind

const (
	KindConfig = location.Config
	KindData   = location.Data
	KindBlob   = location.Blob
)

// ParseKind converts "config", "data" or "blob" to a Kind.
func ParseKind(s string) (Kind, error) { return location.ParseKind(s) }

// Location identifies a logical store by kind, name and owning repository.
type Location = location.Location

// RepositoryLocator finds the root directory of a repository.
type RepositoryLocator = location.RepositoryLocator

// LocatorFunc adapts a function to RepositoryLocator.
type LocatorFunc = location.LocatorFunc

// Codec converts values to and from their on-disk form.
type Codec = codec.Codec

// RawXML is a schema-less XML document for tools that move entries around
// without knowing their type.
type RawXML = codec.RawXML

// KeyGenerator creates ids for Add and Create.
type KeyGenerator = keygen.Generator

var (
	// XMLCodec is the default codec.
	XMLCodec Codec = codec.XML{}
	// YAMLCodec stores values as YAML documents.
	YAMLCodec Codec = codec.YAML{}
)
