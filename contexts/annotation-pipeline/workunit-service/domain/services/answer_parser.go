package services

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// resultField is the answer field whose free text carries the canonical
// annotation document as JSON.
const resultField = "annotation"

// AnswerPayload is the decoded form of a marketplace answer document:
// the flat question/answer field map plus, when the annotation field
// held valid JSON, the canonical result document.
type AnswerPayload struct {
	Fields map[string]string
	Result map[string]any
}

type answerDocument struct {
	Answers []answerItem `xml:"Answer"`
}

type answerItem struct {
	QuestionIdentifier string `xml:"QuestionIdentifier"`
	FreeText           string `xml:"FreeText"`
}

// ParseAnswerPayload decodes the XML answer document attached to a
// remote submission. It always returns a usable payload: an empty input
// yields empty fields, and a degraded parse is reported through the
// error while the fields recovered so far are kept. Callers log the
// error and continue; a broken payload must never abort a poll cycle.
func ParseAnswerPayload(raw string) (AnswerPayload, error) {
	payload := AnswerPayload{Fields: map[string]string{}}
	if strings.TrimSpace(raw) == "" {
		return payload, nil
	}

	var doc answerDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return payload, fmt.Errorf("parse answer document: %w", err)
	}

	for _, item := range doc.Answers {
		key := strings.TrimSpace(item.QuestionIdentifier)
		if key == "" {
			continue
		}
		payload.Fields[key] = item.FreeText
	}

	encoded := strings.TrimSpace(payload.Fields[resultField])
	if encoded == "" {
		return payload, nil
	}
	result := map[string]any{}
	if err := json.Unmarshal([]byte(encoded), &result); err != nil {
		return payload, fmt.Errorf("decode %s field: %w", resultField, err)
	}
	payload.Result = result
	return payload, nil
}
