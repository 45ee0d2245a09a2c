package services

import "testing"

const namespacedAnswerXML = `<?xml version="1.0" encoding="UTF-8"?>
<QuestionFormAnswers xmlns="http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2005-10-01/QuestionFormAnswers.xsd">
  <Answer>
    <QuestionIdentifier>annotation</QuestionIdentifier>
    <FreeText>{"result": {"polygon": [[0, 0], [1, 1]]}, "schema_version": "v1"}</FreeText>
  </Answer>
  <Answer>
    <QuestionIdentifier>comment</QuestionIdentifier>
    <FreeText>looks fine</FreeText>
  </Answer>
</QuestionFormAnswers>`

func TestParseAnswerPayloadExtractsFieldsAndResult(t *testing.T) {
	payload, err := ParseAnswerPayload(namespacedAnswerXML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Fields["comment"] != "looks fine" {
		t.Fatalf("expected comment field, got %#v", payload.Fields)
	}
	if payload.Result == nil {
		t.Fatalf("expected canonical result, got none")
	}
	if payload.Result["schema_version"] != "v1" {
		t.Fatalf("expected schema_version v1, got %#v", payload.Result)
	}
	if _, ok := payload.Result["result"].(map[string]any); !ok {
		t.Fatalf("expected result object, got %#v", payload.Result["result"])
	}
}

func TestParseAnswerPayloadEmptyInput(t *testing.T) {
	payload, err := ParseAnswerPayload("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Fields) != 0 || payload.Result != nil {
		t.Fatalf("expected empty payload, got %#v", payload)
	}
}

func TestParseAnswerPayloadMalformedXML(t *testing.T) {
	payload, err := ParseAnswerPayload("<QuestionFormAnswers><Answer>")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if payload.Fields == nil {
		t.Fatalf("expected usable empty fields on parse failure")
	}
}

func TestParseAnswerPayloadKeepsFieldsWhenResultIsNotJSON(t *testing.T) {
	raw := `<QuestionFormAnswers>
  <Answer>
    <QuestionIdentifier>annotation</QuestionIdentifier>
    <FreeText>not json at all</FreeText>
  </Answer>
</QuestionFormAnswers>`

	payload, err := ParseAnswerPayload(raw)
	if err == nil {
		t.Fatalf("expected decode error for non-JSON annotation field")
	}
	if payload.Fields["annotation"] != "not json at all" {
		t.Fatalf("expected raw field kept, got %#v", payload.Fields)
	}
	if payload.Result != nil {
		t.Fatalf("expected no canonical result, got %#v", payload.Result)
	}
}

func TestParseAnswerPayloadSkipsUnnamedAnswers(t *testing.T) {
	raw := `<QuestionFormAnswers>
  <Answer>
    <QuestionIdentifier>  </QuestionIdentifier>
    <FreeText>ignored</FreeText>
  </Answer>
  <Answer>
    <QuestionIdentifier>kept</QuestionIdentifier>
    <FreeText>value</FreeText>
  </Answer>
</QuestionFormAnswers>`

	payload, err := ParseAnswerPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Fields) != 1 || payload.Fields["kept"] != "value" {
		t.Fatalf("expected only named field, got %#v", payload.Fields)
	}
}
