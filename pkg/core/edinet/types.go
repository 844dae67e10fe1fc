package edinet

import (
	"encoding/json"
	"strings"
)

// AnnualDocTypes are the document type codes of annual securities reports
// and their amendments.
var AnnualDocTypes = map[string]bool{"120": true, "130": true}

// Document is one row of the daily documents listing. Only the fields the
// pipeline reads are decoded.
type Document struct {
	DocID          string     `json:"docID"`
	EDINETCode     string     `json:"edinetCode"`
	SecCode        string     `json:"secCode"`
	FilerName      string     `json:"filerName"`
	DocTypeCode    string     `json:"docTypeCode"`
	DocDescription string     `json:"docDescription"`
	PeriodStart    string     `json:"periodStart"`
	PeriodEnd      string     `json:"periodEnd"`
	SubmitDateTime string     `json:"submitDateTime"`
	SubmitDate     looseField `json:"submitDate,omitempty"`
	SubmitTime     looseField `json:"submitTime,omitempty"`
}

// SubmitKey orders documents by submission. EDINET timestamps are
// "YYYY-MM-DD hh:mm", so lexical order is chronological.
func (d Document) SubmitKey() string {
	if d.SubmitDateTime != "" {
		return d.SubmitDateTime
	}
	return string(d.SubmitDate) + "T" + string(d.SubmitTime)
}

// IsAnnual reports whether the document is an annual report or its amendment.
func (d Document) IsAnnual() bool { return AnnualDocTypes[d.DocTypeCode] }

// Listing is the documents.json payload. The probe (type=1) carries only
// metadata; the full listing (type=2) adds results.
type Listing struct {
	Metadata Metadata   `json:"metadata"`
	Results  []Document `json:"results,omitempty"`
}

// Metadata is the listing header.
type Metadata struct {
	Title           string     `json:"title,omitempty"`
	ProcessDateTime looseField `json:"processDateTime,omitempty"`
	Status          looseField `json:"status,omitempty"`
	Message         string     `json:"message,omitempty"`
	ResultSet       struct {
		Count int `json:"count"`
	} `json:"resultset"`
}

// Fingerprint summarizes a listing: when two fingerprints are equal the
// full listing did not change.
type Fingerprint struct {
	Count   int
	Process string
	Status  string
}

// Fingerprint derives the listing fingerprint.
func (l *Listing) Fingerprint() Fingerprint {
	status := string(l.Metadata.Status)
	if status == "" {
		status = l.Metadata.Message
	}
	return Fingerprint{
		Count:   l.Metadata.ResultSet.Count,
		Process: string(l.Metadata.ProcessDateTime),
		Status:  status,
	}
}

// looseField decodes a JSON string or number into text. The API is not
// consistent about quoting numeric metadata.
type looseField string

func (f *looseField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = looseField(str)
		return nil
	}
	*f = looseField(s)
	return nil
}
