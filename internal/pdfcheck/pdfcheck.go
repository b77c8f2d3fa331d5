// Package pdfcheck performs a cheap sanity pass over uploaded invoice files
// before they are forwarded for extraction. The magic-byte check is a hard
// gate; full parsing is best effort because scanners and office suites emit
// plenty of PDFs that strict readers reject but the extraction engine still
// handles.
package pdfcheck

import (
	"bytes"
	"errors"
	"io"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF indicates the payload does not start with the PDF header.
var ErrNotPDF = errors.New("not a pdf file")

// Info describes the outcome of a check.
type Info struct {
	SizeBytes int64
	// Parsed is false when the file passed the header check but the full
	// parse failed; PageCount is zero in that case.
	Parsed    bool
	PageCount int
}

// Check reads the payload and validates it as a PDF.
func Check(r io.Reader) (Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	return CheckBytes(data)
}

// CheckBytes validates an in-memory payload as a PDF.
func CheckBytes(data []byte) (Info, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return Info{}, ErrNotPDF
	}

	info := Info{SizeBytes: int64(len(data))}
	pages, err := countPages(data)
	if err == nil {
		info.Parsed = true
		info.PageCount = pages
	}
	return info, nil
}

func countPages(data []byte) (pages int, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("pdf parse panic")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
