package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
)

// CSV import errors.
var (
	ErrBadHeader   = errors.New("csv header must be: text,options,answer,explanation,topic")
	ErrNoValidRows = errors.New("no valid rows in file")
)

var expectedHeader = []string{"text", "options", "answer", "explanation", "topic"}

// RowError describes why one CSV line was rejected.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportReport summarizes one CSV upload.
type ImportReport struct {
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ImportService ingests question banks from CSV uploads.
type ImportService struct {
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(questionRepo *repository.QuestionRepository, log zerolog.Logger) *ImportService {
	return &ImportService{
		questionRepo: questionRepo,
		log:          log.With().Str("component", "import_service").Logger(),
	}
}

// ImportCSV parses the reader as a question CSV and bulk-inserts the valid
// rows. Invalid rows are skipped and reported with their line number;
// the import fails only when the header is wrong or nothing parses.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, ErrBadHeader
	}
	if !validHeader(header) {
		return nil, ErrBadHeader
	}

	report := &ImportReport{}
	var questions []model.Question
	line := 1

	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, RowError{Line: line, Message: "malformed csv row"})
			continue
		}

		q, err := parseRow(record)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		questions = append(questions, *q)
	}

	if len(questions) == 0 {
		return report, ErrNoValidRows
	}

	inserted, err := s.questionRepo.BulkInsert(ctx, questions)
	report.Inserted = inserted
	if err != nil {
		s.log.Error().Err(err).Int("inserted", inserted).Msg("question bulk insert failed")
		return report, err
	}

	s.log.Info().Int("inserted", inserted).Int("skipped", report.Skipped).Msg("question import finished")
	return report, nil
}

func validHeader(header []string) bool {
	if len(header) != len(expectedHeader) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(h), expectedHeader[i]) {
			return false
		}
	}
	return true
}

func parseRow(record []string) (*model.Question, error) {
	if len(record) < 5 {
		return nil, fmt.Errorf("expected 5 columns, got %d", len(record))
	}

	text := strings.TrimSpace(record[0])
	if text == "" {
		return nil, errors.New("empty question text")
	}

	options, err := parseOptions(record[1])
	if err != nil {
		return nil, err
	}

	correctIndex, err := resolveAnswer(record[2], options)
	if err != nil {
		return nil, err
	}

	var explanation *string
	if e := strings.TrimSpace(record[3]); e != "" {
		explanation = &e
	}

	topic := strings.TrimSpace(record[4])
	if topic == "" {
		topic = "General"
	}

	return &model.Question{
		Topic:        topic,
		Text:         text,
		Options:      options,
		CorrectIndex: correctIndex,
		Explanation:  explanation,
	}, nil
}

// parseOptions accepts either a JSON string array or a delimited list.
// Pipe is tried before comma so option text may contain commas.
func parseOptions(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty options")
	}

	if strings.HasPrefix(raw, "[") {
		var options []string
		if err := json.Unmarshal([]byte(raw), &options); err != nil {
			return nil, fmt.Errorf("invalid options json: %w", err)
		}
		return cleanOptions(options)
	}

	sep := ","
	if strings.Contains(raw, "|") {
		sep = "|"
	}
	return cleanOptions(strings.Split(raw, sep))
}

func cleanOptions(options []string) ([]string, error) {
	cleaned := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) < 2 {
		return nil, errors.New("need at least 2 options")
	}
	return cleaned, nil
}

// resolveAnswer matches the answer cell against the options. A bare number
// is treated as a zero-based index, anything else as the answer's text,
// compared case-insensitively.
func resolveAnswer(raw string, options []string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty answer")
	}

	if idx, err := strconv.Atoi(raw); err == nil {
		if idx < 0 || idx >= len(options) {
			return 0, fmt.Errorf("answer index %d out of range", idx)
		}
		return idx, nil
	}

	for i, o := range options {
		if strings.EqualFold(o, raw) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("answer %q does not match any option", raw)
}
