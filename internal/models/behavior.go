package models

import "slices"

// BehaviorKind represents the nature of a behaviour event.
type BehaviorKind string

const (
	BehaviorPositive BehaviorKind = "positive"
	BehaviorNegative BehaviorKind = "negative"
)

// Valid returns true when the kind is a supported value.
func (k BehaviorKind) Valid() bool {
	return k == BehaviorPositive || k == BehaviorNegative
}

// Delta is the score adjustment carried by one event of this kind.
func (k BehaviorKind) Delta() int {
	switch k {
	case BehaviorPositive:
		return 1
	case BehaviorNegative:
		return -1
	default:
		return 0
	}
}

// UnmarshalText accepts the short pos/neg spelling written by older blobs.
func (k *BehaviorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pos", "+":
		*k = BehaviorPositive
	case "neg", "-":
		*k = BehaviorNegative
	default:
		*k = BehaviorKind(text)
	}
	return nil
}

// BehaviorEvent is one scored note in a student's history. Events are never edited.
type BehaviorEvent struct {
	Date string       `json:"date"`
	Kind BehaviorKind `json:"type"`
	Note string       `json:"note"`
}

var (
	positiveBehaviors = []string{"مشاركة فعالة", "حل الواجب", "احترام المعلم", "نظافة", "تعاون", "إجابة ذكية"}
	negativeBehaviors = []string{"إزعاج", "نسيان الكتاب", "تأخر", "نوم في الحصة", "استخدام الهاتف", "شغب"}
)

// BehaviorVocabulary lists the notes a teacher may pick per kind.
type BehaviorVocabulary struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// DefaultVocabulary returns a copy of the built-in behaviour notes.
func DefaultVocabulary() BehaviorVocabulary {
	return BehaviorVocabulary{
		Positive: slices.Clone(positiveBehaviors),
		Negative: slices.Clone(negativeBehaviors),
	}
}

// Allows reports whether note belongs to the list for kind.
func (v BehaviorVocabulary) Allows(kind BehaviorKind, note string) bool {
	switch kind {
	case BehaviorPositive:
		return slices.Contains(v.Positive, note)
	case BehaviorNegative:
		return slices.Contains(v.Negative, note)
	default:
		return false
	}
}
