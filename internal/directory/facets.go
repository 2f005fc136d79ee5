package directory

import "sort"

// HospitalFacets are the selectable values for the hospital filters.
type HospitalFacets struct {
	Hospitals []string `json:"hospitals"`
	Locations []string `json:"locations"`
	Services  []string `json:"services"`
}

// HospitalOption is a hospital choice in the doctor filter.
type HospitalOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DoctorFacets are the selectable values for the doctor filters.
type DoctorFacets struct {
	Specializations []string         `json:"specializations"`
	Hospitals       []HospitalOption `json:"hospitals"`
}

// BuildHospitalFacets collects names (sorted), locations and services
// (first-seen order).
func BuildHospitalFacets(hospitals []Hospital) HospitalFacets {
	names := uniqueSet{}
	locations := uniqueSet{}
	services := uniqueSet{}
	for _, h := range hospitals {
		names.add(h.Name)
		locations.add(h.Location)
		for _, svc := range h.Services {
			services.add(svc)
		}
	}
	sorted := append([]string(nil), names.values...)
	sort.Strings(sorted)
	return HospitalFacets{
		Hospitals: nonNil(sorted),
		Locations: nonNil(locations.values),
		Services:  nonNil(services.values),
	}
}

// BuildDoctorFacets collects specializations and the hospitals doctors
// belong to, preferring names from the hospitals list.
func BuildDoctorFacets(doctors []Doctor, hospitals []Hospital) DoctorFacets {
	namesByID := make(map[string]string, len(hospitals))
	for _, h := range hospitals {
		namesByID[h.ID] = h.Name
	}

	specs := uniqueSet{}
	var options []HospitalOption
	index := map[string]int{}
	for _, d := range doctors {
		specs.add(d.Specialization)
		if d.HospitalID == "" {
			continue
		}
		name := firstNonEmpty(namesByID[d.HospitalID], d.HospitalName)
		if i, seen := index[d.HospitalID]; seen {
			options[i].Name = name
			continue
		}
		index[d.HospitalID] = len(options)
		options = append(options, HospitalOption{ID: d.HospitalID, Name: name})
	}
	if options == nil {
		options = []HospitalOption{}
	}
	return DoctorFacets{Specializations: nonNil(specs.values), Hospitals: options}
}

type uniqueSet struct {
	seen   map[string]struct{}
	values []string
}

func (u *uniqueSet) add(v string) {
	if v == "" {
		return
	}
	if u.seen == nil {
		u.seen = map[string]struct{}{}
	}
	if _, ok := u.seen[v]; ok {
		return
	}
	u.seen[v] = struct{}{}
	u.values = append(u.values, v)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
