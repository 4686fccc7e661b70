package mrz

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Record is the field view of an MRZ as a document reader would decode it.
type Record struct {
	DocumentType   string    `json:"document_type"`
	IssuingState   string    `json:"issuing_state"`
	Surname        string    `json:"surname"`
	GivenNames     string    `json:"given_names"`
	DocumentNumber string    `json:"document_number"`
	Nationality    string    `json:"nationality"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Sex            string    `json:"sex"`
	DateOfExpiry   time.Time `json:"date_of_expiry"`
	CheckDigits    string    `json:"check_digits"`
}

// Parse decodes a line pair produced by Generate. Check digits are
// returned as read and not verified.
func Parse(lines Lines) (Record, error) {
	for i, l := range lines {
		if utf8.RuneCountInString(l) != LineLength || len(l) != LineLength {
			return Record{}, fmt.Errorf("%w: line %d must be %d ASCII characters", ErrInvalidInput, i+1, LineLength)
		}
	}
	line1, line2 := lines[0], lines[1]

	if line1[1] != filler {
		return Record{}, fmt.Errorf("%w: missing filler after document type", ErrInvalidInput)
	}

	rec := Record{
		DocumentType:   line1[0:1],
		IssuingState:   line1[2:5],
		DocumentNumber: strings.TrimRight(line2[0:10], string(filler)),
		Nationality:    line2[11:14],
		Sex:            line2[21:22],
		CheckDigits:    string([]byte{line2[10], line2[20], line2[28], line2[43]}),
	}

	names := line1[5:]
	surname, given, _ := strings.Cut(names, string(filler)+string(filler))
	rec.Surname = decodeName(surname)
	rec.GivenNames = decodeName(given)

	var err error
	rec.DateOfBirth, err = ParseDateOfBirth(line2[14:20])
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse date of birth: %w", err)
	}
	rec.DateOfExpiry, err = ParseExpiryDate(line2[22:28])
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse date of expiry: %w", err)
	}

	return rec, nil
}

func decodeName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimRight(s, string(filler)), string(filler), " "))
}
