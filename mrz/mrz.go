package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LineLength is the width of each line of a TD3 (passport) MRZ.
const LineLength = 44

const (
	filler            = '<'
	documentNumberLen = 10
	dateLayout        = "060102"
	formDateLayout    = "2006-01-02"
)

// placeholder check digits for number, birth date, expiry and composite
const (
	placeholderNumberCD    = '1'
	placeholderBirthCD     = '1'
	placeholderExpiryCD    = '6'
	placeholderCompositeCD = '0'
)

var ErrInvalidInput = errors.New("invalid mrz input")

var validSex = map[string]bool{"M": true, "F": true, "X": true}

type Input struct {
	DocumentType   string
	IssuingState   string
	Surname        string
	GivenNames     string
	DocumentNumber string
	Nationality    string
	DateOfBirth    time.Time
	Sex            string
	DateOfExpiry   time.Time
}

type Lines [2]string

// Generator builds the two MRZ lines of a passport. The zero value emits
// constant placeholder check digits.
type Generator struct {
	ComputeCheckDigits bool
}

// Generate formats the input with placeholder check digits.
func Generate(in Input) (Lines, error) {
	return Generator{}.Generate(in)
}

func (g Generator) Generate(in Input) (Lines, error) {
	if err := validate(in); err != nil {
		return Lines{}, err
	}

	line1 := strings.ToUpper(in.DocumentType) + string(filler) + strings.ToUpper(in.IssuingState) +
		EncodeName(in.Surname) + strings.Repeat(string(filler), 2) + EncodeName(in.GivenNames)

	number := fit(EncodeName(in.DocumentNumber), documentNumberLen)
	dob := in.DateOfBirth.Format(dateLayout)
	expiry := in.DateOfExpiry.Format(dateLayout)

	numberCD, dobCD, expiryCD := byte(placeholderNumberCD), byte(placeholderBirthCD), byte(placeholderExpiryCD)
	if g.ComputeCheckDigits {
		numberCD, dobCD, expiryCD = CheckDigit(number), CheckDigit(dob), CheckDigit(expiry)
	}

	var b strings.Builder
	b.WriteString(number)
	b.WriteByte(numberCD)
	b.WriteString(strings.ToUpper(in.Nationality))
	b.WriteString(dob)
	b.WriteByte(dobCD)
	b.WriteString(strings.ToUpper(in.Sex))
	b.WriteString(expiry)
	b.WriteByte(expiryCD)
	line2 := fit(b.String(), LineLength-1)

	compositeCD := byte(placeholderCompositeCD)
	if g.ComputeCheckDigits {
		compositeCD = CheckDigit(compositeField(line2))
	}
	line2 += string(compositeCD)

	return Lines{fit(line1, LineLength), line2}, nil
}

// EncodeName upper-cases s and replaces ASCII spaces with the filler.
func EncodeName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), " ", string(filler))
}

// ParseDate parses a YYYY-MM-DD form value into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(formDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// fit right-pads s with the filler and truncates it to exactly n characters.
func fit(s string, n int) string {
	r := []rune(s)
	if len(r) >= n {
		return string(r[:n])
	}
	return s + strings.Repeat(string(filler), n-len(r))
}

// compositeField selects the line 2 positions covered by the composite
// check digit: number and its digit, birth date and its digit, expiry,
// its digit and the optional data up to the composite position.
func compositeField(line2 string) string {
	return line2[0:11] + line2[14:21] + line2[22:43]
}

func validate(in Input) error {
	if in.DocumentType == "" {
		return fmt.Errorf("%w: document type is empty", ErrInvalidInput)
	}
	if len(in.DocumentType) != 1 || !isLetters(in.DocumentType) {
		return fmt.Errorf("%w: document type must be a single letter, got %q", ErrInvalidInput, in.DocumentType)
	}
	if err := validateCountry("issuing state", in.IssuingState); err != nil {
		return err
	}
	if err := validateCountry("nationality", in.Nationality); err != nil {
		return err
	}
	if strings.TrimSpace(in.Surname) == "" {
		return fmt.Errorf("%w: surname is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(in.GivenNames) == "" {
		return fmt.Errorf("%w: given names are empty", ErrInvalidInput)
	}
	if strings.TrimSpace(in.DocumentNumber) == "" {
		return fmt.Errorf("%w: document number is empty", ErrInvalidInput)
	}
	if !isDocumentNumber(in.DocumentNumber) {
		return fmt.Errorf("%w: document number may only hold letters, digits and spaces, got %q", ErrInvalidInput, in.DocumentNumber)
	}
	if !validSex[strings.ToUpper(in.Sex)] {
		return fmt.Errorf("%w: sex must be one of M, F or X, got %q", ErrInvalidInput, in.Sex)
	}
	if in.DateOfBirth.IsZero() {
		return fmt.Errorf("%w: date of birth is missing", ErrInvalidInput)
	}
	if in.DateOfExpiry.IsZero() {
		return fmt.Errorf("%w: date of expiry is missing", ErrInvalidInput)
	}
	return nil
}

func validateCountry(field, code string) error {
	if code == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidInput, field)
	}
	if len(code) != 3 || !isLetters(code) {
		return fmt.Errorf("%w: %s must be a 3-letter code, got %q", ErrInvalidInput, field, code)
	}
	return nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// isDocumentNumber reports whether s only holds characters that encode to
// the MRZ alphabet: ASCII letters, digits and spaces.
func isDocumentNumber(s string) bool {
	for _, r := range s {
		if r != ' ' && (r < '0' || r > '9') && !isLetters(string(r)) {
			return false
		}
	}
	return true
}
