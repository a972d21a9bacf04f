package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Native PDF text and image readers built on pdfcpu's content and image
// extraction. Text decoding reads the page's content stream and collects
// the text-showing operators; simple encodings decode cleanly, CID-keyed
// fonts do not and fall through to the OCR path via the density check.

var (
	reTj = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	reTJ = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	reTd = regexp.MustCompile(`T[dD*]|'|"`)
	reStr = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// NativePageText implements PageTextFunc for a single-page PDF file.
func NativePageText(ctx context.Context, pagePath string) (string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dir, err := os.MkdirTemp("", "annualcompare-content-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractContentFile(pagePath, dir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting content of %s: %w", pagePath, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		sb.WriteString(decodeContentText(string(data)))
	}
	return sb.String(), nil
}

// decodeContentText walks a content stream line by line, decoding Tj and TJ
// operands and inserting line breaks at text positioning operators.
func decodeContentText(content string) string {
	var sb strings.Builder
	for _, line := range strings.Split(content, "\n") {
		wrote := false
		for _, m := range reTj.FindAllStringSubmatch(line, -1) {
			sb.WriteString(unescapePDFString(m[1]))
			wrote = true
		}
		for _, m := range reTJ.FindAllStringSubmatch(line, -1) {
			for _, s := range reStr.FindAllStringSubmatch(m[1], -1) {
				sb.WriteString(unescapePDFString(s[1]))
			}
			wrote = true
		}
		if wrote || reTd.MatchString(line) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func unescapePDFString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r', 'f', 'b':
			// Ignored control escapes.
		case '(', ')', '\\':
			sb.WriteByte(s[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 1
			for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			if n, err := strconv.ParseInt(s[i:end], 8, 16); err == nil {
				sb.WriteByte(byte(n))
			}
			i = end - 1
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// NativePageImage implements PageImageFunc: it extracts the page's embedded
// images and returns the largest one. Scanned filings carry each page as a
// single full-page raster, so the largest image is the page.
func NativePageImage(ctx context.Context, pagePath string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dir, err := os.MkdirTemp("", "annualcompare-images-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractImagesFile(pagePath, dir, nil, conf); err != nil {
		return nil, fmt.Errorf("extracting images of %s: %w", pagePath, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var best string
	var bestSize int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return nil, fmt.Errorf("no embedded images in %s", pagePath)
	}
	return os.ReadFile(best)
}
