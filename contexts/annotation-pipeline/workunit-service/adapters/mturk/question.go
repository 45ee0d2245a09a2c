package mturkadapter

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const defaultFrameHeight = 950

const externalQuestionTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ExternalQuestion xmlns="http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2006-07-14/ExternalQuestion.xsd">
  <ExternalURL>%s</ExternalURL>
  <FrameHeight>%d</FrameHeight>
</ExternalQuestion>`

// ExternalQuestionXML wraps an externally hosted task UI in the
// marketplace question envelope. The URL is escaped so query strings
// survive XML embedding.
func ExternalQuestionXML(url string, frameHeight int) string {
	if frameHeight <= 0 {
		frameHeight = defaultFrameHeight
	}
	return fmt.Sprintf(externalQuestionTemplate, escapeXML(url), frameHeight)
}

func escapeXML(value string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(value)); err != nil {
		return value
	}
	return buf.String()
}
