package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("no text content found in document")

type ResumeParser interface {
	Extract(filePath string) (*ResumeText, error)
}

type ResumeText struct {
	Text      string
	PageCount int
}

type pdfResumeParser struct{}

func NewResumeParser() ResumeParser {
	return &pdfResumeParser{}
}

// Extract reads the plain text of every readable page. Pages that fail to
// decode are skipped.
func (p *pdfResumeParser) Extract(filePath string) (*ResumeText, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("failed to stat resume: %w", err)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	text := CleanText(strings.Join(pages, "\n"))
	if text == "" {
		return nil, ErrEmptyDocument
	}

	return &ResumeText{Text: text, PageCount: r.NumPage()}, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
