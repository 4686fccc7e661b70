package models

import (
	"testing"
	"time"

	"go-passport-preview/mrz"

	"github.com/stretchr/testify/require"
)

func testForm() PassportForm {
	return PassportForm{
		Surname:      " Doe ",
		GivenNames:   "John Allen",
		Nationality:  "American",
		Gender:       "male",
		DateOfBirth:  "1990-05-21",
		PlaceOfBirth: "Boston",
		CountryCode:  "usa",
		PassportNo:   "AB1234567",
		IssueDate:    "2020-11-03",
		ExpiryDate:   "2030-11-02",
		Boarding:     "New York (JFK)",
		Landing:      "London (LHR)",
	}
}

func TestPassportFormNormalize(t *testing.T) {
	f := testForm()
	f.Normalize()
	require.Equal(t, "Doe", f.Surname)
	require.Equal(t, "USA", f.CountryCode)
}

func TestPassportFormParseDates(t *testing.T) {
	f := testForm()
	d, err := f.ParseDates()
	require.NoError(t, err)
	require.Equal(t, time.Date(1990, time.May, 21, 0, 0, 0, 0, time.UTC), d.DateOfBirth)
	require.Equal(t, time.Date(2020, time.November, 3, 0, 0, 0, 0, time.UTC), d.IssueDate)
	require.Equal(t, time.Date(2030, time.November, 2, 0, 0, 0, 0, time.UTC), d.DateOfExpiry)

	for _, mod := range []func(*PassportForm){
		func(f *PassportForm) { f.DateOfBirth = "21/05/1990" },
		func(f *PassportForm) { f.IssueDate = "" },
		func(f *PassportForm) { f.ExpiryDate = "2030-02-31" },
	} {
		f := testForm()
		mod(&f)
		_, err := f.ParseDates()
		require.ErrorIs(t, err, mrz.ErrInvalidInput)
	}
}

func TestPassportFormMrzInput(t *testing.T) {
	f := testForm()
	f.Normalize()
	f.Surname = "Müller"
	d, err := f.ParseDates()
	require.NoError(t, err)

	in := f.MrzInput(d)
	require.Equal(t, mrz.Input{
		DocumentType:   "P",
		IssuingState:   "USA",
		Surname:        "MULLER",
		GivenNames:     "JOHN ALLEN",
		DocumentNumber: "AB1234567",
		Nationality:    "USA",
		DateOfBirth:    d.DateOfBirth,
		Sex:            "M",
		DateOfExpiry:   d.DateOfExpiry,
	}, in)

	lines, err := mrz.Generate(in)
	require.NoError(t, err)
	require.Equal(t, "P<USAMULLER<<JOHN<ALLEN<<<<<<<<<<<<<<<<<<<<<", lines[0])
}

func TestPassportFormMrzInputSex(t *testing.T) {
	tests := []struct {
		gender string
		sex    string
	}{
		{"Female", "F"},
		{"m", "M"},
		{"X", "X"},
		{"", ""},
		{"Other", "O"},
	}

	for _, tt := range tests {
		t.Run(tt.gender, func(t *testing.T) {
			f := testForm()
			f.Gender = tt.gender
			require.Equal(t, tt.sex, f.MrzInput(PassportDates{}).Sex)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
