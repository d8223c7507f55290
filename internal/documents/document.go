package documents

import (
	"strings"
	"time"
)

// Document is an uploaded resume. ContentType is what the client declared,
// MimeType what the store sniffed from the bytes.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	OriginalFilename string
	MimeType         string
	ContentType      string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}

// EffectiveMime prefers the declared content type, which is more specific than
// sniffing for docx (sniffed as a zip).
func (d Document) EffectiveMime() string {
	if ct := strings.TrimSpace(d.ContentType); ct != "" {
		return ct
	}
	return d.MimeType
}

// DisplayName is the name the user uploaded the file under.
func (d Document) DisplayName() string {
	if d.OriginalFilename != "" {
		return d.OriginalFilename
	}
	return d.FileName
}

// View is the JSON shape returned by the documents endpoints.
type View struct {
	DocumentID      string     `json:"documentId"`
	FileName        string     `json:"fileName"`
	MimeType        string     `json:"mimeType"`
	SizeBytes       int64      `json:"sizeBytes"`
	StorageProvider string     `json:"storageProvider,omitempty"`
	HasText         bool       `json:"hasText"`
	ExtractedAt     *time.Time `json:"extractedAt,omitempty"`
	UploadedAt      time.Time  `json:"uploadedAt"`
}

func viewOf(d Document) View {
	return View{
		DocumentID:      d.ID,
		FileName:        d.DisplayName(),
		MimeType:        d.EffectiveMime(),
		SizeBytes:       d.SizeBytes,
		StorageProvider: d.StorageProvider,
		HasText:         d.ExtractedTextKey != "",
		ExtractedAt:     d.ExtractedAt,
		UploadedAt:      d.CreatedAt,
	}
}

func viewsOf(docs []Document) []View {
	out := make([]View, 0, len(docs))
	for _, d := range docs {
		out = append(out, viewOf(d))
	}
	return out
}
