// Package sheets stores grading results, student insights and the syllabus in a
// Google Sheets spreadsheet, one worksheet per record kind.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"eduai/internal/models"
)

const (
	GradesSheet   = "Grades"
	TeacherSheet  = "Teacher"
	SyllabusSheet = "Syllabus"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	// Sheets rejects cells longer than 50k characters.
	maxCellChars = 50000
)

var (
	gradesHeaders = []any{"Date", "Student ID", "Student Name", "Subject", "Grade", "Percentage",
		"Strengths", "Weaknesses", "Suggestions", "Summary", "Submission ID", "Detail JSON"}
	teacherHeaders = []any{"Date", "Student Name", "Assignment Score", "Strengths", "Weaknesses",
		"Predicted Score", "Improvement Plan", "Learning Strategy", "Motivational Message", "Notes"}
	syllabusHeaders = []any{"Topic", "Duration", "Subject", "Planned Date", "Status", "Last Updated"}
)

type Store struct {
	api           valuesAPI
	spreadsheetID string
	now           func() time.Time

	mu      sync.Mutex
	ensured map[string]bool
}

// New connects with a service-account credentials file.
func New(ctx context.Context, credentialsFile, spreadsheetID string) (*Store, error) {
	api, err := newGoogleValues(ctx, credentialsFile)
	if err != nil {
		return nil, err
	}
	return newStore(api, spreadsheetID), nil
}

func newStore(api valuesAPI, spreadsheetID string) *Store {
	return &Store{api: api, spreadsheetID: spreadsheetID, now: time.Now, ensured: map[string]bool{}}
}

func (s *Store) Name() string { return "sheets" }

// ensureSheet creates a worksheet with its header row the first time it is used.
func (s *Store) ensureSheet(ctx context.Context, title string, headers []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[title] {
		return nil
	}
	titles, err := s.api.SheetTitles(ctx, s.spreadsheetID)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if t == title {
			s.ensured[title] = true
			return nil
		}
	}
	if err := s.api.AddSheet(ctx, s.spreadsheetID, title, int64(len(headers))); err != nil {
		return err
	}
	if err := s.api.Update(ctx, s.spreadsheetID, fmt.Sprintf("%s!A1:%s1", title, column(len(headers))), [][]any{headers}); err != nil {
		return err
	}
	s.ensured[title] = true
	return nil
}

func (s *Store) AppendResult(ctx context.Context, res models.GradingResult) error {
	if err := s.ensureSheet(ctx, GradesSheet, gradesHeaders); err != nil {
		return err
	}
	row, err := resultRow(res)
	if err != nil {
		return err
	}
	return s.api.Append(ctx, s.spreadsheetID, GradesSheet+"!A1", [][]any{row})
}

func (s *Store) ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.GradingResult, 0)
	for _, r := range all {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAll reads the Grades worksheet in row order, which is append order.
func (s *Store) ListAll(ctx context.Context) ([]models.GradingResult, error) {
	if err := s.ensureSheet(ctx, GradesSheet, gradesHeaders); err != nil {
		return nil, err
	}
	rows, err := s.api.Get(ctx, s.spreadsheetID, GradesSheet+"!A2:L")
	if err != nil {
		return nil, err
	}
	out := make([]models.GradingResult, 0, len(rows))
	for _, row := range rows {
		if res, ok := parseResultRow(row); ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// SaveInsight writes one analysis row to the Teacher worksheet.
func (s *Store) SaveInsight(ctx context.Context, in models.StudentInsight, notes string) error {
	if err := s.ensureSheet(ctx, TeacherSheet, teacherHeaders); err != nil {
		return err
	}
	at := in.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	row := []any{
		at.Format(dateTimeLayout),
		in.StudentName,
		in.AssignmentScore,
		strings.Join(in.Strengths, ", "),
		strings.Join(in.Weaknesses, ", "),
		in.PredictedScore,
		strings.Join(in.ImprovementPlan, ", "),
		in.LearningStrategy,
		in.MotivationalMessage,
		notes,
	}
	return s.api.Append(ctx, s.spreadsheetID, TeacherSheet+"!A1", [][]any{row})
}

// UpsertSyllabusTopic updates the row whose Topic matches, or appends a new one.
func (s *Store) UpsertSyllabusTopic(ctx context.Context, t models.SyllabusTopic) error {
	if err := s.ensureSheet(ctx, SyllabusSheet, syllabusHeaders); err != nil {
		return err
	}
	planned := ""
	if !t.PlannedDate.IsZero() {
		planned = t.PlannedDate.Format(dateLayout)
	}
	row := []any{t.Topic, t.DurationHours, t.Subject, planned, t.Status, s.now().Format(dateTimeLayout)}

	rows, err := s.api.Get(ctx, s.spreadsheetID, SyllabusSheet+"!A2:F")
	if err != nil {
		return err
	}
	for i, existing := range rows {
		if strings.EqualFold(cell(existing, 0), t.Topic) && (cell(existing, 2) == "" || strings.EqualFold(cell(existing, 2), t.Subject)) {
			if planned == "" {
				row[3] = cell(existing, 3)
			}
			rowNum := i + 2
			return s.api.Update(ctx, s.spreadsheetID, fmt.Sprintf("%s!A%d:F%d", SyllabusSheet, rowNum, rowNum), [][]any{row})
		}
	}
	return s.api.Append(ctx, s.spreadsheetID, SyllabusSheet+"!A1", [][]any{row})
}

func (s *Store) ListSyllabus(ctx context.Context) ([]models.SyllabusTopic, error) {
	if err := s.ensureSheet(ctx, SyllabusSheet, syllabusHeaders); err != nil {
		return nil, err
	}
	rows, err := s.api.Get(ctx, s.spreadsheetID, SyllabusSheet+"!A2:F")
	if err != nil {
		return nil, err
	}
	out := make([]models.SyllabusTopic, 0, len(rows))
	for _, row := range rows {
		topic := cell(row, 0)
		if topic == "" {
			continue
		}
		t := models.SyllabusTopic{Topic: topic, Subject: cell(row, 2), Status: cell(row, 4)}
		t.DurationHours, _ = strconv.Atoi(cell(row, 1))
		t.PlannedDate, _ = time.Parse(dateLayout, cell(row, 3))
		t.UpdatedAt, _ = time.Parse(dateTimeLayout, cell(row, 5))
		if t.Status == "" {
			t.Status = models.TopicNotStarted
		}
		out = append(out, t)
	}
	return out, nil
}

func resultRow(res models.GradingResult) ([]any, error) {
	detail, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode grading result: %w", err)
	}
	if len(detail) > maxCellChars {
		slim := res
		slim.Questions = nil
		if detail, err = json.Marshal(slim); err != nil {
			return nil, fmt.Errorf("encode grading result: %w", err)
		}
	}
	return []any{
		res.GradedAt.Format(dateTimeLayout),
		res.StudentID,
		res.StudentName,
		res.Subject,
		res.Grade,
		res.Percentage,
		strings.Join(res.Strengths, "; "),
		strings.Join(res.Weaknesses, "; "),
		strings.Join(res.Suggestions, "; "),
		res.Summary,
		res.SubmissionID,
		string(detail),
	}, nil
}

// parseResultRow prefers the Detail JSON column and falls back to the flat
// columns for rows typed in by hand.
func parseResultRow(row []any) (models.GradingResult, bool) {
	if d := cell(row, 11); strings.HasPrefix(d, "{") {
		var res models.GradingResult
		if err := json.Unmarshal([]byte(d), &res); err == nil {
			return res, true
		}
	}
	studentID := cell(row, 1)
	if studentID == "" {
		return models.GradingResult{}, false
	}
	pct, _ := strconv.ParseFloat(strings.TrimSuffix(cell(row, 5), "%"), 64)
	graded, _ := time.Parse(dateTimeLayout, cell(row, 0))
	return models.GradingResult{
		GradedAt:     graded,
		StudentID:    studentID,
		StudentName:  cell(row, 2),
		Subject:      cell(row, 3),
		Grade:        cell(row, 4),
		Percentage:   pct,
		Strengths:    splitList(cell(row, 6)),
		Weaknesses:   splitList(cell(row, 7)),
		Suggestions:  splitList(cell(row, 8)),
		Summary:      cell(row, 9),
		SubmissionID: cell(row, 10),
	}, true
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// column converts a 1-based index to its A1 letter form.
func column(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
