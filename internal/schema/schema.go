// Package schema declares collections and globals as plain data and provides
// the data-driven routines (coercion, defaults, validation) that every
// collection shares.
package schema

import (
	"path"
	"strings"
)

// Kind identifies the value type of a field.
type Kind string

const (
	KindText         Kind = "text"
	KindTextarea     Kind = "textarea"
	KindEmail        Kind = "email"
	KindCode         Kind = "code"
	KindNumber       Kind = "number"
	KindCheckbox     Kind = "checkbox"
	KindSelect       Kind = "select"
	KindGroup        Kind = "group"
	KindArray        Kind = "array"
	KindRelationship Kind = "relationship"
	KindUpload       Kind = "upload"
	KindRichText     Kind = "richText"
	KindJSON         Kind = "json"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTextarea, KindEmail, KindCode, KindNumber, KindCheckbox,
		KindSelect, KindGroup, KindArray, KindRelationship, KindUpload, KindRichText, KindJSON:
		return true
	}
	return false
}

// textual reports whether values of this kind are plain strings.
func (k Kind) textual() bool {
	switch k {
	case KindText, KindTextarea, KindEmail, KindCode:
		return true
	}
	return false
}

// Option is one allowed value of a select field.
type Option struct {
	Label string `json:"label" toml:"label"`
	Value string `json:"value" toml:"value"`
}

// UnmarshalTOML accepts either a bare string or a {label, value} table.
func (o *Option) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		o.Label, o.Value = t, t
	case map[string]any:
		o.Label, _ = t["label"].(string)
		o.Value, _ = t["value"].(string)
		if o.Label == "" {
			o.Label = o.Value
		}
	}
	return nil
}

// Field describes a single field of a collection or global.
type Field struct {
	Name       string   `json:"name" toml:"name"`
	Kind       Kind     `json:"type" toml:"type"`
	Label      string   `json:"label,omitempty" toml:"label"`
	Required   bool     `json:"required,omitempty" toml:"required"`
	Unique     bool     `json:"unique,omitempty" toml:"unique"`
	Min        *float64 `json:"min,omitempty" toml:"min"`
	Max        *float64 `json:"max,omitempty" toml:"max"`
	Options    []Option `json:"options,omitempty" toml:"options"`
	Default    any      `json:"defaultValue,omitempty" toml:"default"`
	Fields     []Field  `json:"fields,omitempty" toml:"fields"`
	RelationTo string   `json:"relationTo,omitempty" toml:"relation_to"`

	// Hidden fields are managed by the store client: never accepted from
	// input and never returned to callers.
	Hidden bool `json:"-" toml:"-"`
	// WriteOnly fields are accepted from input but never persisted as-is.
	WriteOnly bool `json:"-" toml:"-"`
}

// hasOption reports whether v is one of the field's option values.
func (f *Field) hasOption(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

func (f *Field) optionValues() []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Value
	}
	return out
}

// ImageSize is a declared derivative of an uploaded image. Derivatives are
// generated elsewhere; the store only records the declaration.
type ImageSize struct {
	Name   string `json:"name" toml:"name"`
	Width  int    `json:"width,omitempty" toml:"width"`
	Height int    `json:"height,omitempty" toml:"height"`
}

// UploadConfig marks a collection as upload-backed.
type UploadConfig struct {
	MimeTypes  []string    `json:"mimeTypes,omitempty" toml:"mime_types"`
	ImageSizes []ImageSize `json:"imageSizes,omitempty" toml:"image_sizes"`
}

// Allows reports whether mimeType matches one of the configured patterns.
// An empty pattern list allows everything.
func (u *UploadConfig) Allows(mimeType string) bool {
	if len(u.MimeTypes) == 0 {
		return true
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, p := range u.MimeTypes {
		if ok, _ := path.Match(strings.ToLower(p), mimeType); ok {
			return true
		}
	}
	return false
}

// Collection is a schema-defined kind of document with many instances.
type Collection struct {
	Slug       string        `json:"slug" toml:"slug"`
	UseAsTitle string        `json:"useAsTitle,omitempty" toml:"use_as_title"`
	Auth       bool          `json:"auth,omitempty" toml:"auth"`
	Upload     *UploadConfig `json:"upload,omitempty" toml:"upload"`
	Fields     []Field       `json:"fields" toml:"fields"`
}

// Field returns the top-level field with the given name.
func (c *Collection) Field(name string) (*Field, bool) {
	return findField(c.Fields, name)
}

// Global is a schema-defined singleton document.
type Global struct {
	Slug   string  `json:"slug" toml:"slug"`
	Fields []Field `json:"fields" toml:"fields"`
}

func findField(fields []Field, name string) (*Field, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i], true
		}
	}
	return nil, false
}

// Credential field names added to auth collections.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldHash     = "hash"
)

// Upload field names added to upload collections.
const (
	FieldFilename = "filename"
	FieldMimeType = "mimeType"
	FieldFilesize = "filesize"
	FieldURL      = "url"
)

func authFields() []Field {
	return []Field{
		{Name: FieldEmail, Kind: KindEmail, Required: true, Unique: true},
		{Name: FieldPassword, Kind: KindText, Required: true, WriteOnly: true},
		{Name: FieldHash, Kind: KindText, Hidden: true},
	}
}

func uploadFields() []Field {
	return []Field{
		{Name: FieldFilename, Kind: KindText, Required: true},
		{Name: FieldMimeType, Kind: KindText},
		{Name: FieldFilesize, Kind: KindNumber, Min: float64Ptr(0)},
		{Name: FieldURL, Kind: KindText},
	}
}

func float64Ptr(v float64) *float64 { return &v }
