package extract

import (
	"archive/zip"
	"bytes"
	"mime"
	"path/filepath"
	"strings"
)

const (
	MimePDF   = "application/pdf"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePlain = "text/plain"
	mimeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePPTX  = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeZip   = "application/zip"
	mimeOctet = "application/octet-stream"
)

var pdfMagic = []byte("%PDF-")

// extensionTypes apply only when the declared type says nothing useful.
var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".txt":  MimePlain,
	".md":   MimePlain,
}

// ooxmlParts identify the Office format inside a zip container.
var ooxmlParts = map[string]string{
	"word/document.xml":    MimeDOCX,
	"xl/workbook.xml":      mimeXLSX,
	"ppt/presentation.xml": mimePPTX,
}

// NormalizeMimeType reconciles a declared type with the file name and
// content. Known types pass through; zip containers are identified by
// their parts; generic types fall back to the PDF signature and then the
// file extension. Anything else is returned lowercased without parameters.
func NormalizeMimeType(mimeType string, fileName string, data []byte) string {
	declared := baseType(mimeType)
	if _, ok := extractors[declared]; ok {
		return declared
	}

	generic := declared == "" || declared == mimeOctet
	switch {
	case declared == mimeZip:
		if part := ooxmlType(data); part != "" {
			return part
		}
	case generic && bytes.HasPrefix(data, pdfMagic):
		return MimePDF
	}

	byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]
	if ok && (generic || (declared == mimeZip && byExt == MimeDOCX)) {
		return byExt
	}
	return declared
}

func baseType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if media, _, err := mime.ParseMediaType(raw); err == nil {
		return media
	}
	return strings.ToLower(strings.TrimSpace(strings.SplitN(raw, ";", 2)[0]))
}

func ooxmlType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if kind, ok := ooxmlParts[strings.ReplaceAll(f.Name, "\\", "/")]; ok {
			return kind
		}
	}
	return ""
}
