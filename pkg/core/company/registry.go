package company

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"edinet_qa/pkg/core/textnorm"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// Row is one organization from the registry dataset.
type Row struct {
	Code    string
	SecCode string
	Name    string
}

var (
	// ErrUndecodable means none of the supported encodings produced clean text.
	ErrUndecodable = errors.New("registry: no supported text encoding matched")
	// ErrNoHeader means no row in the leading lines names both a code and a name column.
	ErrNoHeader = errors.New("registry: header row not found")
)

// headerScanRows bounds how far down the file the header row may appear; the
// official code list carries a download-date line above the header.
const headerScanRows = 5

var (
	codeHeaders      = []string{"edinetコード", "edinet", "code"}
	secCodeHeaders   = []string{"証券コード", "seccode", "sec"}
	nameHeaders      = []string{"提出者名", "会社名", "商号", "companyname", "name", "提出者"}
	nonDigit         = regexp.MustCompile(`\D`)
	legacyEncodings  = []encoding.Encoding{japanese.ShiftJIS, japanese.EUCJP}
	utf8BOM          = []byte{0xEF, 0xBB, 0xBF}
	zipLocalFileHead = []byte("PK\x03\x04")
)

// ParseRegistry decodes a registry CSV (or a ZIP archive holding one) into
// rows. Encodings are tried in order: UTF-8 (BOM tolerated), Shift_JIS/CP932,
// EUC-JP. Header names are normalized before column selection.
func ParseRegistry(raw []byte) ([]Row, error) {
	if bytes.HasPrefix(raw, zipLocalFileHead) {
		inner, err := firstCSVInZip(raw)
		if err != nil {
			return nil, err
		}
		raw = inner
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		codeCol, secCol, nameCol = -1, -1, -1
		rows                     []Row
	)
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("registry csv line %d: %w", line+1, err)
		}
		if codeCol < 0 || nameCol < 0 {
			if line >= headerScanRows {
				return nil, ErrNoHeader
			}
			codeCol, secCol, nameCol = pickColumns(rec)
			continue
		}
		code := field(rec, codeCol)
		name := field(rec, nameCol)
		if code == "" || name == "" {
			continue
		}
		rows = append(rows, Row{Code: code, SecCode: normalizeSecCode(field(rec, secCol)), Name: name})
	}
	if codeCol < 0 || nameCol < 0 {
		return nil, ErrNoHeader
	}
	return rows, nil
}

// pickColumns selects columns by candidate priority, so "提出者名" wins over
// an earlier "提出者種別" column.
func pickColumns(header []string) (code, sec, name int) {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = textnorm.Fold(strings.TrimPrefix(h, "\ufeff"))
	}
	pick := func(candidates []string, skip ...int) int {
		for _, c := range candidates {
			for i, h := range folded {
				if containsInt(skip, i) {
					continue
				}
				if strings.Contains(h, c) {
					return i
				}
			}
		}
		return -1
	}
	code = pick(codeHeaders)
	if code < 0 {
		return -1, -1, -1
	}
	sec = pick(secCodeHeaders, code)
	name = pick(nameHeaders, code, sec)
	return code, sec, name
}

func decodeText(raw []byte) (string, error) {
	trimmed := bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(trimmed) {
		return string(trimmed), nil
	}
	for _, enc := range legacyEncodings {
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if !bytes.ContainsRune(out, utf8.RuneError) {
			return string(out), nil
		}
	}
	return "", ErrUndecodable
}

func firstCSVInZip(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("registry zip: %w", err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("registry zip entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("registry zip entry %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, errors.New("registry zip: no csv entry")
}

// normalizeSecCode keeps the four-digit securities code. The registry often
// carries the five-digit form with a trailing check digit of 0.
func normalizeSecCode(s string) string {
	digits := nonDigit.ReplaceAllString(textnorm.NFKC(s), "")
	if len(digits) > 4 {
		digits = digits[:4]
	}
	return digits
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
