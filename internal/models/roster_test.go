package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterJSONKeepsClassOrder(t *testing.T) {
	roster := NewRoster()
	roster.Classes = append(roster.Classes,
		Class{Name: "Grade 6"},
		Class{Name: "Grade 5", Students: []Student{{ID: "s1", Name: "Ali", Score: 1,
			History:    []BehaviorEvent{{Date: "2024-03-01", Kind: BehaviorPositive, Note: "تعاون"}},
			Attendance: map[string]AttendanceStatus{"2024-03-02": AttendanceStatusAbsent}}}},
		Class{Name: "A"},
	)

	raw, err := json.Marshal(roster)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"Grade 6":\[\],"Grade 5":\[.*\],"A":\[\]\}$`, string(raw))

	var decoded Roster
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Classes, 3)
	assert.Equal(t, []string{"Grade 6", "Grade 5", "A"}, []string{decoded.Classes[0].Name, decoded.Classes[1].Name, decoded.Classes[2].Name})
	assert.Equal(t, roster.Classes[1].Students, decoded.Classes[1].Students)
}

func TestRosterDecodesLegacyBlob(t *testing.T) {
	legacy := `{"الصف الخامس":[{"name":"Sara","score":5,"history":[
		{"date":"2024-01-01","type":"pos","note":"نظافة"},
		{"date":"2024-01-02","type":"neg","note":"تأخر"},
		{"date":"2024-01-03","type":"pos","note":"تعاون"}]},
		{"name":"Omar"}]}`

	var roster Roster
	require.NoError(t, json.Unmarshal([]byte(legacy), &roster))
	next := 0
	roster.Normalize(func() string { next++; return fmt.Sprintf("id-%d", next) })

	class, ok := roster.Class("الصف الخامس")
	require.True(t, ok)
	require.Len(t, class.Students, 2)

	sara := class.Students[0]
	assert.Equal(t, "id-1", sara.ID)
	assert.Equal(t, BehaviorPositive, sara.History[0].Kind)
	assert.Equal(t, BehaviorNegative, sara.History[1].Kind)
	assert.Equal(t, 1, sara.Score, "score is refolded from history")

	omar := class.Students[1]
	assert.Equal(t, "id-2", omar.ID)
	assert.NotNil(t, omar.History)
	assert.NotNil(t, omar.Attendance)
	assert.Equal(t, 0, omar.Score)
}

func TestRosterDecodeNullAndInvalid(t *testing.T) {
	var roster Roster
	require.NoError(t, json.Unmarshal([]byte(`null`), &roster))
	assert.Empty(t, roster.Classes)

	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &roster))
	require.Error(t, json.Unmarshal([]byte(`{"A": 3}`), &roster))
}

func TestStudentDerivedReads(t *testing.T) {
	student := Student{
		History: []BehaviorEvent{
			{Date: "2024-01-01", Kind: BehaviorPositive, Note: "نظافة"},
			{Date: "2024-01-02", Kind: BehaviorNegative, Note: "شغب"},
		},
		Attendance: map[string]AttendanceStatus{
			"2024-01-01": AttendanceStatusAbsent,
			"2024-02-10": AttendanceStatusAbsent,
			"2024-01-15": AttendanceStatusPresent,
		},
	}

	assert.Equal(t, []string{"2024-02-10", "2024-01-01"}, student.AbsentDates())
	assert.Equal(t, AttendanceStatusAbsent, student.StatusOn("2024-01-01"))
	assert.Equal(t, AttendanceStatusPresent, student.StatusOn("2030-01-01"))
	assert.Equal(t, "شغب", student.LatestNote())
	assert.Equal(t, 0, student.FoldScore())
	assert.Equal(t, "", Student{}.LatestNote())
}

func TestRosterCloneIsDeep(t *testing.T) {
	roster := &Roster{Classes: []Class{{Name: "A", Students: []Student{{
		ID: "s1", Attendance: map[string]AttendanceStatus{}, History: []BehaviorEvent{},
	}}}}}
	clone := roster.Clone()

	_, student, ok := clone.FindStudent("s1")
	require.True(t, ok)
	student.Attendance["2024-01-01"] = AttendanceStatusAbsent
	student.History = append(student.History, BehaviorEvent{Kind: BehaviorPositive})
	clone.Classes[0].Name = "B"

	assert.Empty(t, roster.Classes[0].Students[0].Attendance)
	assert.Empty(t, roster.Classes[0].Students[0].History)
	assert.Equal(t, "A", roster.Classes[0].Name)
}

func TestVocabulary(t *testing.T) {
	vocab := DefaultVocabulary()
	assert.True(t, vocab.Allows(BehaviorPositive, "حل الواجب"))
	assert.False(t, vocab.Allows(BehaviorNegative, "حل الواجب"))
	assert.False(t, vocab.Allows(BehaviorKind("neutral"), "حل الواجب"))

	vocab.Positive[0] = "changed"
	assert.Equal(t, "مشاركة فعالة", DefaultVocabulary().Positive[0])
}
