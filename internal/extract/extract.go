package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"careerpilot-backend/internal/shared/storage/object"
)

// ErrUnsupportedType is returned for payloads that are neither PDF, DOCX nor plain text.
var ErrUnsupportedType = errors.New("unsupported mime type")

// ErrNoText is returned when a document parses but yields no readable text.
var ErrNoText = errors.New("no text extracted")

const extractedSuffix = ".extracted.txt"

type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	MimePDF:   pdfText,
	MimeDOCX:  docxText,
	MimePlain: plainText,
}

// ExtractedKey is where the derived text of a stored document lives.
func ExtractedKey(fileKey string) string {
	return fileKey + extractedSuffix
}

// ExtractText reads a stored document, extracts its text and saves the
// text next to it under ExtractedKey.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (string, error) {
	fail := func(err error) (string, error) {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := store.Open(ctx, fileKey)
	if err != nil {
		return fail(err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}

	text, err := ExtractTextFromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		return fail(err)
	}
	if _, err := store.SaveWithKey(ctx, ExtractedKey(fileKey), "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	return text, nil
}

// ExtractTextFromBytes extracts trimmed text from an in-memory payload. The
// declared type is first reconciled with the file name and content.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind := NormalizeMimeType(mimeType, fileName, data)
	fn, ok := extractors[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
	text, err := fn(data)
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "", ErrNoText
	}
	return text, nil
}
