package service

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/importer"
)

// RosterRepository persists the whole roster as one blob.
type RosterRepository interface {
	Load(ctx context.Context) (*models.Roster, error)
	Save(ctx context.Context, roster *models.Roster) error
}

// AddClassRequest creates an empty class.
type AddClassRequest struct {
	Name string `json:"name" validate:"required"`
}

// AddStudentRequest appends a student to a class.
type AddStudentRequest struct {
	ClassName string `json:"-" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

// RecordBehaviorRequest appends one behaviour event. An empty date means today.
type RecordBehaviorRequest struct {
	ClassName string              `json:"-" validate:"required"`
	StudentID string              `json:"-" validate:"required"`
	Kind      models.BehaviorKind `json:"kind" validate:"required,oneof=positive negative"`
	Note      string              `json:"note" validate:"required"`
	Date      string              `json:"date"`
}

// SetAttendanceRequest records a status for one date.
type SetAttendanceRequest struct {
	ClassName string                  `json:"-" validate:"required"`
	StudentID string                  `json:"-" validate:"required"`
	Date      string                  `json:"date" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=present absent"`
}

// ImportStudentsRequest appends parsed spreadsheet rows to a class.
type ImportStudentsRequest struct {
	ClassName   string              `validate:"required"`
	Rows        []map[string]string `validate:"-"`
	CreateClass bool
}

// ImportResult reports how a batch was applied.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Students []models.Student `json:"students"`
}

// RosterConfig tunes roster rules.
type RosterConfig struct {
	StrictVocabulary bool
	Vocabulary       models.BehaviorVocabulary
}

// RosterService owns the in-memory roster. Every mutation is applied to a
// copy, persisted, and only then published.
type RosterService struct {
	repo      RosterRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       RosterConfig

	mu     sync.RWMutex
	roster *models.Roster
	loaded bool
	now    func() time.Time
	newID  func() string
}

// NewRosterService constructs the roster service with an empty roster; call Load before serving.
func NewRosterService(repo RosterRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg RosterConfig) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Vocabulary.Positive == nil && cfg.Vocabulary.Negative == nil {
		cfg.Vocabulary = models.DefaultVocabulary()
	}
	return &RosterService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		roster:    models.NewRoster(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load replaces the in-memory roster with the stored blob. Students missing
// an id are assigned one and the upgraded blob is written back.
func (s *RosterService) Load(ctx context.Context) error {
	roster, err := s.repo.Load(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	assigned := 0
	roster.Normalize(func() string {
		assigned++
		return s.newID()
	})
	if assigned > 0 {
		if err := s.repo.Save(ctx, roster); err != nil {
			s.logger.Warn("failed to persist assigned student ids", zap.Int("assigned", assigned), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.roster = roster
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("roster loaded", zap.Int("classes", len(roster.Classes)), zap.Int("assigned_ids", assigned))
	return nil
}

// Loaded reports whether Load has completed.
func (s *RosterService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Vocabulary returns the behaviour notes accepted per kind.
func (s *RosterService) Vocabulary() models.BehaviorVocabulary {
	return models.BehaviorVocabulary{
		Positive: slices.Clone(s.cfg.Vocabulary.Positive),
		Negative: slices.Clone(s.cfg.Vocabulary.Negative),
	}
}

// AddClass creates an empty class with a unique, non-blank name.
func (s *RosterService) AddClass(ctx context.Context, req AddClassRequest) (*models.ClassSummary, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class name is required")
	}
	err := s.mutate(ctx, "add_class", func(r *models.Roster) error {
		if _, exists := r.Class(req.Name); exists {
			return appErrors.Clone(appErrors.ErrValidation, "class already exists")
		}
		r.Classes = append(r.Classes, models.Class{Name: req.Name, Students: []models.Student{}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("class added", zap.String("class", req.Name))
	return &models.ClassSummary{Name: req.Name}, nil
}

// AddStudent appends a new student with score 0 and empty records.
func (s *RosterService) AddStudent(ctx context.Context, req AddStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := s.blankStudent(req.Name)
	err := s.mutate(ctx, "add_student", func(r *models.Roster) error {
		class, ok := r.Class(req.ClassName)
		if !ok {
			return classNotFound()
		}
		class.Students = append(class.Students, student.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student added", zap.String("class", req.ClassName), zap.String("student_id", student.ID))
	return &student, nil
}

// RecordBehavior appends an event and moves the score by one.
func (s *RosterService) RecordBehavior(ctx context.Context, req RecordBehaviorRequest) (*models.Student, error) {
	req.Note = strings.TrimSpace(req.Note)
	if req.Date == "" {
		req.Date = s.today()
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid behavior payload")
	}
	if !models.ValidDate(req.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if s.cfg.StrictVocabulary && !s.cfg.Vocabulary.Allows(req.Kind, req.Note) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note is not a known "+string(req.Kind)+" behavior")
	}

	var updated models.Student
	err := s.mutate(ctx, "record_behavior", func(r *models.Roster) error {
		student, err := lookupStudent(r, req.ClassName, req.StudentID)
		if err != nil {
			return err
		}
		student.History = append(student.History, models.BehaviorEvent{Date: req.Date, Kind: req.Kind, Note: req.Note})
		student.Score += req.Kind.Delta()
		updated = student.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("behavior recorded",
		zap.String("class", req.ClassName),
		zap.String("student_id", req.StudentID),
		zap.String("kind", string(req.Kind)),
		zap.Int("score", updated.Score),
	)
	return &updated, nil
}

// SetAttendance stores status for the date, replacing any earlier value.
func (s *RosterService) SetAttendance(ctx context.Context, req SetAttendanceRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !models.ValidDate(req.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	var updated models.Student
	err := s.mutate(ctx, "set_attendance", func(r *models.Roster) error {
		student, err := lookupStudent(r, req.ClassName, req.StudentID)
		if err != nil {
			return err
		}
		if student.Attendance == nil {
			student.Attendance = map[string]models.AttendanceStatus{}
		}
		student.Attendance[req.Date] = req.Status
		updated = student.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendance set",
		zap.String("class", req.ClassName),
		zap.String("student_id", req.StudentID),
		zap.String("date", req.Date),
		zap.String("status", string(req.Status)),
	)
	return &updated, nil
}

// ImportStudents appends one student per row with a non-blank name in a
// single save. With CreateClass a missing class is created first.
func (s *RosterService) ImportStudents(ctx context.Context, req ImportStudentsRequest) (*ImportResult, error) {
	req.ClassName = strings.TrimSpace(req.ClassName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class name is required")
	}

	result := &ImportResult{Students: []models.Student{}}
	for _, row := range req.Rows {
		name := strings.TrimSpace(row[importer.NameKey])
		if name == "" {
			result.Skipped++
			continue
		}
		result.Students = append(result.Students, s.blankStudent(name))
	}
	result.Imported = len(result.Students)

	err := s.mutate(ctx, "import_students", func(r *models.Roster) error {
		class, ok := r.Class(req.ClassName)
		if !ok {
			if !req.CreateClass {
				return classNotFound()
			}
			r.Classes = append(r.Classes, models.Class{Name: req.ClassName, Students: []models.Student{}})
			class = &r.Classes[len(r.Classes)-1]
		}
		for _, student := range result.Students {
			class.Students = append(class.Students, student.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveImport(result.Imported, result.Skipped)
	s.logger.Info("students imported",
		zap.String("class", req.ClassName),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// ListClasses returns class summaries in creation order.
func (s *RosterService) ListClasses(ctx context.Context) []models.ClassSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ClassSummary, 0, len(s.roster.Classes))
	for _, class := range s.roster.Classes {
		out = append(out, models.ClassSummary{Name: class.Name, StudentCount: len(class.Students)})
	}
	return out
}

// ListStudents returns the students of a class in insertion order.
func (s *RosterService) ListStudents(ctx context.Context, className string) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, ok := s.roster.Class(className)
	if !ok {
		return nil, classNotFound()
	}
	out := make([]models.Student, 0, len(class.Students))
	for _, student := range class.Students {
		out = append(out, student.Clone())
	}
	return out, nil
}

// GetStudent returns a student with derived fields and history newest first.
func (s *RosterService) GetStudent(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, student, ok := s.roster.FindStudent(studentID)
	if !ok {
		return nil, studentNotFound()
	}
	detail := &models.StudentDetail{
		Student:      student.Clone(),
		ClassName:    class.Name,
		AbsenceCount: len(student.AbsentDates()),
	}
	slices.Reverse(detail.History)
	return detail, nil
}

// History returns the behaviour events of a student, newest first.
func (s *RosterService) History(ctx context.Context, studentID string) ([]models.BehaviorEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, student, ok := s.roster.FindStudent(studentID)
	if !ok {
		return nil, studentNotFound()
	}
	history := slices.Clone(student.History)
	slices.Reverse(history)
	if history == nil {
		history = []models.BehaviorEvent{}
	}
	return history, nil
}

// Absences yields the dates a student was absent, newest first. The sequence
// reads a private copy taken at call time and may be ranged over repeatedly.
func (s *RosterService) Absences(ctx context.Context, studentID string) (iter.Seq[string], error) {
	s.mu.RLock()
	_, student, ok := s.roster.FindStudent(studentID)
	var dates []string
	if ok {
		dates = student.AbsentDates()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, studentNotFound()
	}
	return func(yield func(string) bool) {
		for _, date := range dates {
			if !yield(date) {
				return
			}
		}
	}, nil
}

// Snapshot returns one row per student for date (today when empty).
func (s *RosterService) Snapshot(ctx context.Context, className, date string) ([]models.SnapshotRow, error) {
	if date == "" {
		date = s.today()
	}
	if !models.ValidDate(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, ok := s.roster.Class(className)
	if !ok {
		return nil, classNotFound()
	}
	rows := make([]models.SnapshotRow, 0, len(class.Students))
	for _, student := range class.Students {
		rows = append(rows, models.SnapshotRow{
			StudentID:  student.ID,
			Name:       student.Name,
			Status:     student.StatusOn(date),
			Score:      student.Score,
			LatestNote: student.LatestNote(),
		})
	}
	return rows, nil
}

// Today returns the current date in roster format.
func (s *RosterService) Today() string {
	return s.today()
}

func (s *RosterService) mutate(ctx context.Context, op string, apply func(r *models.Roster) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.roster.Clone()
	if err := apply(next); err != nil {
		s.metrics.ObserveRosterOperation(op, resultRejected)
		return err
	}

	start := time.Now()
	if err := s.repo.Save(ctx, next); err != nil {
		s.metrics.ObserveRosterOperation(op, resultFailed)
		s.logger.Error("failed to persist roster", zap.String("op", op), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save roster")
	}
	s.metrics.ObserveRosterSave(time.Since(start))
	s.metrics.ObserveRosterOperation(op, resultOK)

	s.roster = next
	return nil
}

func (s *RosterService) blankStudent(name string) models.Student {
	return models.Student{
		ID:         s.newID(),
		Name:       name,
		History:    []models.BehaviorEvent{},
		Attendance: map[string]models.AttendanceStatus{},
	}
}

func (s *RosterService) today() string {
	return s.now().Format(models.DateLayout)
}

func lookupStudent(r *models.Roster, className, studentID string) (*models.Student, error) {
	class, ok := r.Class(className)
	if !ok {
		return nil, classNotFound()
	}
	student, ok := class.Student(studentID)
	if !ok {
		return nil, studentNotFound()
	}
	return student, nil
}

func classNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

func studentNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}
