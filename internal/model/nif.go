package model

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Tax identifier errors.
var (
	ErrInvalidNIF = errors.New("invalid NIF/NIE/CIF")
	ErrInvalidVAT = errors.New("invalid EU VAT number")
)

const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniRegex = regexp.MustCompile(`^[0-9]{8}[A-Z]$`)
	nieRegex = regexp.MustCompile(`^[XYZ][0-9]{7}[A-Z]$`)
	cifRegex = regexp.MustCompile(`^[ABCDEFGHJNPQRSUVW][0-9]{7}[0-9A-J]$`)
	vatRegex = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z+*]{2,12}$`)
)

// NormalizeTaxID upper-cases id and strips blanks, dots and dashes.
func NormalizeTaxID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\t':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, id)
}

// ValidateNIF checks a Spanish DNI, NIE or CIF including its control character.
func ValidateNIF(id string) error {
	id = NormalizeTaxID(id)
	switch {
	case dniRegex.MatchString(id):
		n, _ := strconv.Atoi(id[:8])
		if dniLetters[n%23] != id[8] {
			return ErrInvalidNIF
		}
		return nil
	case nieRegex.MatchString(id):
		lead := strings.IndexByte("XYZ", id[0])
		n, _ := strconv.Atoi(strconv.Itoa(lead) + id[1:8])
		if dniLetters[n%23] != id[8] {
			return ErrInvalidNIF
		}
		return nil
	case cifRegex.MatchString(id):
		return validateCIF(id)
	}
	return ErrInvalidNIF
}

func validateCIF(id string) error {
	digits := id[1:8]
	sum := 0
	for i, c := range digits {
		d := int(c - '0')
		if i%2 == 0 {
			d *= 2
			d = d/10 + d%10
		}
		sum += d
	}
	control := (10 - sum%10) % 10
	letter := "JABCDEFGHI"[control]
	last := id[8]

	switch id[0] {
	case 'P', 'Q', 'R', 'S', 'N', 'W':
		if last != letter {
			return ErrInvalidNIF
		}
	case 'A', 'B', 'E', 'H':
		if last != byte('0'+control) {
			return ErrInvalidNIF
		}
	default:
		if last != letter && last != byte('0'+control) {
			return ErrInvalidNIF
		}
	}
	return nil
}

// ValidateVAT checks the shape of an EU VAT number. Spanish numbers
// ("ES" prefix) are also checked with ValidateNIF.
func ValidateVAT(id string) error {
	id = NormalizeTaxID(id)
	if !vatRegex.MatchString(id) {
		return ErrInvalidVAT
	}
	if strings.HasPrefix(id, "ES") {
		if ValidateNIF(id[2:]) != nil {
			return ErrInvalidVAT
		}
	}
	return nil
}

// ValidateTaxID accepts a Spanish NIF, or an EU VAT number when the
// counterparty is intra-community.
func ValidateTaxID(id string, intracommunity bool) error {
	if intracommunity {
		return ValidateVAT(id)
	}
	return ValidateNIF(id)
}

// ValidateIBAN checks an IBAN with the ISO 7064 mod 97 rule.
func ValidateIBAN(iban string) bool {
	iban = NormalizeTaxID(iban)
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	rearranged := iban[4:] + iban[:4]

	rem := 0
	for _, c := range rearranged {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
			rem = (rem*10 + v) % 97
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}
