package directory

import (
	"strconv"
	"strings"
)

// AllValue is the filter sentinel that matches every record.
const AllValue = "all"

// HospitalFilter narrows the hospital list. Hospital, Location and Service
// are selections (exact, case-insensitive); Search is free text over name
// and location; MinRating is a numeric threshold.
type HospitalFilter struct {
	Hospital  string
	Location  string
	Service   string
	MinRating string
	Search    string
}

// DoctorFilter narrows the doctor list. HospitalID and Specialization are
// selections; Availability and Search are free text.
type DoctorFilter struct {
	HospitalID     string
	Specialization string
	Availability   string
	Search         string
}

// ParseRating reads a rating threshold; ok is false for "all" or empty.
func ParseRating(raw string) (threshold float64, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if isAll(raw) {
		return 0, false, nil
	}
	threshold, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, ErrInvalidRating
	}
	return threshold, true, nil
}

// FilterHospitals returns the hospitals matching every filter, in input order.
func FilterHospitals(hospitals []Hospital, f HospitalFilter) ([]Hospital, error) {
	threshold, hasRating, err := ParseRating(f.MinRating)
	if err != nil {
		return nil, err
	}
	out := make([]Hospital, 0, len(hospitals))
	for _, h := range hospitals {
		if !selects(f.Hospital, h.Name) || !selects(f.Location, h.Location) {
			continue
		}
		if !isAll(f.Service) && !selectsAny(f.Service, h.Services) {
			continue
		}
		if hasRating && h.Rating < threshold {
			continue
		}
		if !contains(f.Search, h.Name) && !contains(f.Search, h.Location) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// FilterDoctors returns the doctors matching every filter, in input order.
func FilterDoctors(doctors []Doctor, f DoctorFilter) []Doctor {
	out := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		if !selects(f.HospitalID, d.HospitalID) || !selects(f.Specialization, d.Specialization) {
			continue
		}
		if !contains(f.Availability, d.Availability) {
			continue
		}
		if !contains(f.Search, d.Name) && !contains(f.Search, d.Specialization) && !contains(f.Search, d.HospitalName) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func isAll(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, AllValue)
}

// selects is the selection policy: trimmed, case-insensitive equality.
func selects(filter, value string) bool {
	if isAll(filter) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(filter), strings.TrimSpace(value))
}

func selectsAny(filter string, values []string) bool {
	for _, v := range values {
		if selects(filter, v) {
			return true
		}
	}
	return false
}

// contains is the free-text policy: case-insensitive substring.
func contains(filter, value string) bool {
	if isAll(filter) {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(filter)))
}
