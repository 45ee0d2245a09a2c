package mturkadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

type capturedRequest struct {
	target string
	body   map[string]any
}

// newFakeRequester serves canned responses keyed by the X-Amz-Target
// header and records every request it saw.
func newFakeRequester(t *testing.T, responses map[string]any) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	captured := &[]capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.Header.Get("X-Amz-Target")
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		body := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		*captured = append(*captured, capturedRequest{target: target, body: body})

		response, ok := responses[target]
		if !ok {
			http.Error(w, "unexpected target "+target, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	return server, captured
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Config{
		Sandbox:         true,
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	})
	if err != nil {
		t.Fatalf("building client failed: %v", err)
	}
	return client
}

func TestClientCreateWorkUnit(t *testing.T) {
	server, captured := newFakeRequester(t, map[string]any{
		"MTurkRequesterServiceV20170117.CreateHIT": map[string]any{
			"HIT": map[string]any{"HITId": "HIT-123", "HITGroupId": "GROUP-9", "HITStatus": "Assignable"},
		},
	})
	defer server.Close()
	client := newTestClient(t, server.URL)

	groupID, err := client.CreateWorkUnit(context.Background(), ports.CreateWorkUnitParams{
		Title:              "bounding_box annotation",
		Description:        "Complete the annotation task in the external UI.",
		Keywords:           "image, annotation",
		Reward:             "0.10",
		MaxSubmitters:      1,
		Lifetime:           24 * time.Hour,
		AssignmentDuration: 30 * time.Minute,
		ExternalURL:        "http://annotate.local/tasks/task-1/annotate/mturk/?sandbox=1",
	})
	if err != nil {
		t.Fatalf("create work unit failed: %v", err)
	}
	if groupID != "HIT-123" {
		t.Fatalf("expected hit id as group id, got %q", groupID)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected one request, got %d", len(*captured))
	}
	request := (*captured)[0]
	if request.body["Title"] != "bounding_box annotation" {
		t.Fatalf("unexpected title %#v", request.body["Title"])
	}
	if request.body["Reward"] != "0.10" {
		t.Fatalf("unexpected reward %#v", request.body["Reward"])
	}
	if request.body["LifetimeInSeconds"] != float64(86400) {
		t.Fatalf("unexpected lifetime %#v", request.body["LifetimeInSeconds"])
	}
	if request.body["AssignmentDurationInSeconds"] != float64(1800) {
		t.Fatalf("unexpected assignment duration %#v", request.body["AssignmentDurationInSeconds"])
	}
	question, _ := request.body["Question"].(string)
	if !strings.Contains(question, "<ExternalQuestion") {
		t.Fatalf("expected external question envelope, got %s", question)
	}
	if !strings.Contains(question, "task-1") {
		t.Fatalf("expected callback URL inside question, got %s", question)
	}
}

func TestClientListSubmissions(t *testing.T) {
	server, captured := newFakeRequester(t, map[string]any{
		"MTurkRequesterServiceV20170117.ListAssignmentsForHIT": map[string]any{
			"Assignments": []map[string]any{
				{
					"AssignmentId":     "A-1",
					"WorkerId":         "W-1",
					"AssignmentStatus": "Submitted",
					"Answer":           "<QuestionFormAnswers></QuestionFormAnswers>",
					"HITId":            "HIT-123",
				},
				{
					"AssignmentId":     "A-2",
					"WorkerId":         "W-2",
					"AssignmentStatus": "Approved",
					"HITId":            "HIT-123",
				},
			},
			"NumResults": 2,
		},
	})
	defer server.Close()
	client := newTestClient(t, server.URL)

	submissions, err := client.ListSubmissions(context.Background(), "HIT-123", []string{"Submitted", "Approved", "Rejected"})
	if err != nil {
		t.Fatalf("list submissions failed: %v", err)
	}
	if len(submissions) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(submissions))
	}
	if submissions[0].AssignmentID != "A-1" || submissions[0].SubmitterID != "W-1" {
		t.Fatalf("unexpected first submission %#v", submissions[0])
	}
	if submissions[0].Status != "Submitted" || submissions[1].Status != "Approved" {
		t.Fatalf("expected raw remote statuses, got %#v", submissions)
	}
	if !strings.Contains(submissions[0].Answer, "QuestionFormAnswers") {
		t.Fatalf("expected raw answer payload, got %q", submissions[0].Answer)
	}

	request := (*captured)[0]
	if request.body["HITId"] != "HIT-123" {
		t.Fatalf("expected hit id in request, got %#v", request.body["HITId"])
	}
	statuses, _ := request.body["AssignmentStatuses"].([]any)
	if len(statuses) != 3 || statuses[0] != "Submitted" {
		t.Fatalf("unexpected statuses filter %#v", request.body["AssignmentStatuses"])
	}
	if request.body["MaxResults"] != float64(100) {
		t.Fatalf("expected page size 100, got %#v", request.body["MaxResults"])
	}
}
