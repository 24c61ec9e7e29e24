package awsquery

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestFormIndexed(t *testing.T) {
	form := Form{values: map[string][]string{
		"QueueUrl":              {"http://x/q"},
		"SendMessageBatchRequestEntry.1.Id":   {"msg1"},
		"SendMessageBatchRequestEntry.1.Body": {"hello"},
		"SendMessageBatchRequestEntry.2.Id":   {"msg2"},
		"SendMessageBatchRequestEntry.2.Body": {"world"},
	}}

	entries := form.Indexed("SendMessageBatchRequestEntry")
	if len(entries) != 2 {
		t.Fatalf("Indexed returned %d entries, want 2", len(entries))
	}
	if entries[0].Get("Id") != "msg1" || entries[0].Get("Body") != "hello" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Get("Id") != "msg2" || entries[1].Get("Body") != "world" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
}

func TestFormGetIntFallsBackToDefault(t *testing.T) {
	form := Form{values: map[string][]string{"MaxNumberOfMessages": {"not-a-number"}}}
	if got := form.GetInt("MaxNumberOfMessages", 10); got != 10 {
		t.Fatalf("GetInt = %d, want 10", got)
	}
	form = Form{values: map[string][]string{"MaxNumberOfMessages": {"5"}}}
	if got := form.GetInt("MaxNumberOfMessages", 10); got != 5 {
		t.Fatalf("GetInt = %d, want 5", got)
	}
	form = Form{values: map[string][]string{}}
	if got := form.GetInt("Missing", 7); got != 7 {
		t.Fatalf("GetInt = %d, want 7 (default)", got)
	}
}

func TestServiceMergeDispatchesBothActionSets(t *testing.T) {
	sqs := NewService("sqs")
	var sqsCalled, snsCalled bool
	sqs.Handle("CreateQueue", func(w http.ResponseWriter, r *http.Request, form Form) { sqsCalled = true })

	sns := NewService("sns")
	sns.Handle("CreateTopic", func(w http.ResponseWriter, r *http.Request, form Form) { snsCalled = true })

	sqs.Merge(sns)

	post := func(action string) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"Action": {action}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		sqs.ServeHTTP(rec, req)
	}

	post("CreateQueue")
	post("CreateTopic")

	if !sqsCalled {
		t.Fatal("CreateQueue was not dispatched after Merge")
	}
	if !snsCalled {
		t.Fatal("CreateTopic was not dispatched after Merge")
	}
}

func TestServiceServeHTTPUnknownAction(t *testing.T) {
	s := NewService("sqs")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"Action": {"Nonexistent"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}
