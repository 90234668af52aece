package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

func testEvent() models.Event {
	approvalID := uuid.New()
	return models.Event{
		ID:         uuid.New(),
		Type:       models.EventJobApproved,
		TenantID:   uuid.New(),
		JobID:      uuid.New(),
		ApprovalID: &approvalID,
		ActorID:    uuid.New(),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookDispatch_PostsSignedJSON(t *testing.T) {
	ev := testEvent()
	var gotBody []byte
	var gotSig, gotType string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		gotType = r.Header.Get(HeaderEvent)
		gotSig = r.Header.Get(HeaderSignature)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	s := NewWebhookSink(ts.URL, "s3cret", 5*time.Second)
	if err := s.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotType != models.EventJobApproved {
		t.Errorf("event header = %q", gotType)
	}
	if want := Sign("s3cret", gotBody); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var decoded models.Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if decoded.ID != ev.ID || decoded.JobID != ev.JobID {
		t.Errorf("body does not carry the event: %+v", decoded)
	}
}

func TestWebhookDispatch_NoSecretNoSignature(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sig := r.Header.Get(HeaderSignature); sig != "" {
			t.Errorf("unexpected signature header: %q", sig)
		}
	}))
	defer ts.Close()

	s := NewWebhookSink(ts.URL, "", 5*time.Second)
	if err := s.Dispatch(context.Background(), testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookDispatch_Non2xxIsRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	s := NewWebhookSink(ts.URL, "", 5*time.Second)
	err := s.Dispatch(context.Background(), testEvent())
	if !errors.Is(err, ErrWebhookRejected) {
		t.Fatalf("expected ErrWebhookRejected, got %v", err)
	}
}

func TestWebhookDispatch_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	s := NewWebhookSink(url, "", 2*time.Second)
	err := s.Dispatch(context.Background(), testEvent())
	if !errors.Is(err, ErrWebhookUnreachable) {
		t.Fatalf("expected ErrWebhookUnreachable, got %v", err)
	}
}

func TestWebhookDispatch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	s := NewWebhookSink(ts.URL, "", 50*time.Millisecond)
	err := s.Dispatch(context.Background(), testEvent())
	if !errors.Is(err, ErrWebhookTimeout) {
		t.Fatalf("expected ErrWebhookTimeout, got %v", err)
	}
}

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	want := "sha256=5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}
}
