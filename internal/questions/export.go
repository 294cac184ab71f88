package questions

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"eduai/internal/models"
)

var csvHeaders = []string{
	"Subject", "Topic", "Difficulty", "Question Type", "Question",
	"Expected Time", "Marks", "Answer", "Explanation",
	"Common Mistakes", "Marking Scheme", "Prerequisites", "Visual Aids",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV writes the bank as a spreadsheet-friendly CSV with a UTF-8 BOM.
func ExportCSV(b models.QuestionBank) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, q := range b.Questions {
		row := []string{
			b.Subject,
			b.Topic,
			q.Difficulty,
			q.Type,
			q.Question,
			q.ExpectedTime,
			q.Marks,
			q.Answer,
			q.Explanation,
			strings.Join(q.CommonMistakes, "; "),
			strings.Join(q.MarkingScheme, "; "),
			strings.Join(q.Prerequisites, "; "),
			q.VisualAids,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func ExportJSON(b models.QuestionBank) ([]byte, error) {
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode question bank: %w", err)
	}
	return out, nil
}
