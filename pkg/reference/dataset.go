// Package reference loads and indexes the lookup tables the wizard's
// selection steps draw from: program managers, their schools, and the
// teachers at each school.
package reference

import "sort"

// Teacher is one row of the Teachers sheet scoped to a school.
type Teacher struct {
	Name    string
	Trained bool
}

// Dataset is the read-only in-memory index built by Loader.Load. It is
// rebuilt at the start of a session and never mutated afterwards, so it is
// safe to share across goroutines.
//
// When the Schools sheet maps one school to several program managers the
// last row wins. That is a deliberate policy (the sheet is hand-maintained
// and later rows are assumed to be corrections), not an accident of map
// iteration.
type Dataset struct {
	schoolsByPM      map[string][]string
	pmBySchool       map[string]string
	teachersBySchool map[string][]Teacher
	programManagers  []string
}

// ProgramManagers returns every known program manager, stable-sorted.
func (d *Dataset) ProgramManagers() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.programManagers...)
}

// SchoolsFor returns the schools assigned to a program manager,
// stable-sorted. Unknown managers yield an empty slice, never an error;
// callers must surface the empty case explicitly instead of defaulting to an
// arbitrary school.
func (d *Dataset) SchoolsFor(pm string) []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.schoolsByPM[pm]...)
}

// TeachersFor returns the teachers recorded for a school in sheet order.
func (d *Dataset) TeachersFor(school string) []Teacher {
	if d == nil {
		return nil
	}
	return append([]Teacher(nil), d.teachersBySchool[school]...)
}

// ManagerFor returns the program manager a school resolves to, honoring the
// last-seen-wins policy, and whether the school is known at all.
func (d *Dataset) ManagerFor(school string) (string, bool) {
	if d == nil {
		return "", false
	}
	pm, ok := d.pmBySchool[school]
	return pm, ok
}

func buildDataset(schools []schoolRow, teachers []teacherRow) *Dataset {
	d := &Dataset{
		schoolsByPM:      make(map[string][]string),
		pmBySchool:       make(map[string]string),
		teachersBySchool: make(map[string][]Teacher),
	}

	for _, row := range schools {
		// Last row wins on duplicate school names; reassign below.
		d.pmBySchool[row.school] = row.pm
	}

	seen := make(map[string]map[string]struct{})
	for school, pm := range d.pmBySchool {
		if seen[pm] == nil {
			seen[pm] = make(map[string]struct{})
		}
		if _, dup := seen[pm][school]; dup {
			continue
		}
		seen[pm][school] = struct{}{}
		d.schoolsByPM[pm] = append(d.schoolsByPM[pm], school)
	}
	for pm := range d.schoolsByPM {
		sort.Strings(d.schoolsByPM[pm])
		d.programManagers = append(d.programManagers, pm)
	}
	sort.Strings(d.programManagers)

	for _, row := range teachers {
		d.teachersBySchool[row.school] = append(d.teachersBySchool[row.school], Teacher{
			Name:    row.name,
			Trained: row.trained,
		})
	}

	return d
}

type schoolRow struct {
	pm     string
	school string
}

type teacherRow struct {
	school  string
	name    string
	trained bool
}
