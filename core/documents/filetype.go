package documents

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindUnknown Kind = ""
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
)

var pdfMagic = []byte("%PDF")

// DetectKind classifies an upload from its content, falling back to the file
// extension for image formats the content sniffer does not know (tiff).
func DetectKind(data []byte, filename string) Kind {
	if bytes.HasPrefix(data, pdfMagic) {
		return KindPDF
	}

	contentType := http.DetectContentType(data)
	switch {
	case contentType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return KindImage
	}
	return KindUnknown
}
