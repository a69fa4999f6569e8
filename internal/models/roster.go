package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Student is one learner's record inside a class.
type Student struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	Score      int                         `json:"score"`
	History    []BehaviorEvent             `json:"history"`
	Attendance map[string]AttendanceStatus `json:"attendance"`
}

// StatusOn returns the recorded status for date, present when nothing was recorded.
func (s Student) StatusOn(date string) AttendanceStatus {
	if status, ok := s.Attendance[date]; ok && status.Valid() {
		return status
	}
	return AttendanceStatusPresent
}

// AbsentDates returns every date marked absent, newest first.
func (s Student) AbsentDates() []string {
	dates := make([]string, 0, len(s.Attendance))
	for date, status := range s.Attendance {
		if status == AttendanceStatusAbsent {
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// LatestNote returns the note of the most recent event or "".
func (s Student) LatestNote() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Note
}

// FoldScore recomputes the score from history.
func (s Student) FoldScore() int {
	score := 0
	for _, event := range s.History {
		score += event.Kind.Delta()
	}
	return score
}

// Clone returns a deep copy.
func (s Student) Clone() Student {
	s.History = slices.Clone(s.History)
	s.Attendance = maps.Clone(s.Attendance)
	return s
}

// Class is a named, ordered group of students.
type Class struct {
	Name     string
	Students []Student
}

// Student returns a pointer to the student with id inside the class.
func (c *Class) Student(id string) (*Student, bool) {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return &c.Students[i], true
		}
	}
	return nil, false
}

// Roster holds every class in insertion order.
type Roster struct {
	Classes []Class
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{Classes: []Class{}}
}

// Class returns a pointer to the class named name.
func (r *Roster) Class(name string) (*Class, bool) {
	for i := range r.Classes {
		if r.Classes[i].Name == name {
			return &r.Classes[i], true
		}
	}
	return nil, false
}

// FindStudent locates a student by id across all classes.
func (r *Roster) FindStudent(id string) (*Class, *Student, bool) {
	for i := range r.Classes {
		if student, ok := r.Classes[i].Student(id); ok {
			return &r.Classes[i], student, true
		}
	}
	return nil, nil, false
}

// Clone returns a deep copy of the roster.
func (r *Roster) Clone() *Roster {
	out := &Roster{Classes: make([]Class, len(r.Classes))}
	for i, class := range r.Classes {
		students := make([]Student, len(class.Students))
		for j, student := range class.Students {
			students[j] = student.Clone()
		}
		out.Classes[i] = Class{Name: class.Name, Students: students}
	}
	return out
}

// Normalize fills defaults left out by older blobs: missing ids are generated,
// nil collections become empty and scores are refolded from history.
func (r *Roster) Normalize(newID func() string) {
	if r.Classes == nil {
		r.Classes = []Class{}
	}
	for i := range r.Classes {
		class := &r.Classes[i]
		if class.Students == nil {
			class.Students = []Student{}
		}
		for j := range class.Students {
			student := &class.Students[j]
			if student.ID == "" {
				student.ID = newID()
			}
			if student.History == nil {
				student.History = []BehaviorEvent{}
			}
			if student.Attendance == nil {
				student.Attendance = map[string]AttendanceStatus{}
			}
			student.Score = student.FoldScore()
		}
	}
}

// MarshalJSON writes the roster as an object keyed by class name, keeping class order.
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, class := range r.Classes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(class.Name)
		if err != nil {
			return nil, err
		}
		students := class.Students
		if students == nil {
			students = []Student{}
		}
		value, err := json.Marshal(students)
		if err != nil {
			return nil, fmt.Errorf("marshal class %q: %w", class.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the class-name keyed object, preserving key order.
func (r *Roster) UnmarshalJSON(data []byte) error {
	r.Classes = []Class{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("roster: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("roster: expected class name, got %v", tok)
		}
		var students []Student
		if err := dec.Decode(&students); err != nil {
			return fmt.Errorf("roster: class %q: %w", name, err)
		}
		if existing, ok := r.Class(name); ok {
			existing.Students = students
			continue
		}
		r.Classes = append(r.Classes, Class{Name: name, Students: students})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ClassSummary is the list view of one class.
type ClassSummary struct {
	Name         string `json:"name"`
	StudentCount int    `json:"student_count"`
}

// StudentDetail is a student with derived read fields.
type StudentDetail struct {
	Student
	ClassName    string `json:"class_name"`
	AbsenceCount int    `json:"absence_count"`
}

// SnapshotRow is one printable line of a class report.
type SnapshotRow struct {
	StudentID  string           `json:"student_id"`
	Name       string           `json:"name"`
	Status     AttendanceStatus `json:"status"`
	Score      int              `json:"score"`
	LatestNote string           `json:"latest_note"`
}
