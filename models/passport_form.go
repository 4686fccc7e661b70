package models

import (
	"strings"
	"time"

	"go-passport-preview/mrz"
)

// PassportForm holds the raw fields of the passport and ticket form.
type PassportForm struct {
	Surname      string `form:"surname" json:"surname" validate:"required,max=64"`
	GivenNames   string `form:"given_names" json:"given_names" validate:"required,max=64"`
	Nationality  string `form:"nationality" json:"nationality" validate:"required,max=64"`
	Gender       string `form:"gender" json:"gender" validate:"required,max=16"`
	DateOfBirth  string `form:"dob" json:"dob" validate:"required"`
	PlaceOfBirth string `form:"place_of_birth" json:"place_of_birth" validate:"max=64"`
	CountryCode  string `form:"country_code" json:"country_code" validate:"required,alpha3"`
	PassportNo   string `form:"passport_no" json:"passport_no" validate:"required,max=20"`
	IssueDate    string `form:"issue_date" json:"issue_date" validate:"required"`
	ExpiryDate   string `form:"expiry_date" json:"expiry_date" validate:"required"`
	Boarding     string `form:"boarding" json:"boarding" validate:"max=64"`
	Landing      string `form:"landing" json:"landing" validate:"max=64"`
}

func (f *PassportForm) Normalize() {
	for _, field := range []*string{
		&f.Surname, &f.GivenNames, &f.Nationality, &f.Gender, &f.DateOfBirth,
		&f.PlaceOfBirth, &f.CountryCode, &f.PassportNo, &f.IssueDate,
		&f.ExpiryDate, &f.Boarding, &f.Landing,
	} {
		*field = strings.TrimSpace(*field)
	}
	f.CountryCode = strings.ToUpper(f.CountryCode)
}

// PassportDates are the parsed calendar dates of a PassportForm.
type PassportDates struct {
	DateOfBirth  time.Time
	IssueDate    time.Time
	DateOfExpiry time.Time
}

// ParseDates parses the three form dates; any failure wraps
// mrz.ErrInvalidInput.
func (f PassportForm) ParseDates() (PassportDates, error) {
	var d PassportDates
	var err error
	if d.DateOfBirth, err = mrz.ParseDate(f.DateOfBirth); err != nil {
		return PassportDates{}, err
	}
	if d.IssueDate, err = mrz.ParseDate(f.IssueDate); err != nil {
		return PassportDates{}, err
	}
	if d.DateOfExpiry, err = mrz.ParseDate(f.ExpiryDate); err != nil {
		return PassportDates{}, err
	}
	return d, nil
}

// MrzInput builds the formatter input the way the form has always done:
// a "P" document, nationality taken from the issuing country code and the
// sex from the first letter of the gender field. Names are transliterated
// to the MRZ character set first.
func (f PassportForm) MrzInput(d PassportDates) mrz.Input {
	sex := ""
	if f.Gender != "" {
		sex = strings.ToUpper(string([]rune(f.Gender)[0]))
	}
	return mrz.Input{
		DocumentType:   "P",
		IssuingState:   f.CountryCode,
		Surname:        mrz.Transliterate(f.Surname),
		GivenNames:     mrz.Transliterate(f.GivenNames),
		DocumentNumber: f.PassportNo,
		Nationality:    f.CountryCode,
		DateOfBirth:    d.DateOfBirth,
		Sex:            sex,
		DateOfExpiry:   d.DateOfExpiry,
	}
}

// PreviewResponse is everything the preview page shows.
type PreviewResponse struct {
	Data         PassportForm `json:"data"`
	DateOfBirth  string       `json:"dob"`
	IssueDate    string       `json:"issue_date"`
	DateOfExpiry string       `json:"expiry_date"`
	PhotoURL     string       `json:"photo_url"`
	MrzLines     []string     `json:"mrz_lines"`
	MachineRead  mrz.Record   `json:"machine_read"`
	MrzQRCode    string       `json:"mrz_qr_code"`
}
