package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/repo"
	"github.com/roomly/go-rental-backend/internal/services"
)

func TestSanitizeBody(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"crlf", "a\r\nb", "a\nb"},
		{"bare cr", "a\rb", "a\nb"},
		{"collapses blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"keeps paragraph break", "a\n\nb", "a\n\nb"},
		{"trims edges", "  \n hi \n\n ", "hi"},
		{"whitespace only", " \r\n \n ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeBody(tc.in); got != tc.want {
				t.Fatalf("sanitizeBody(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPostMessage_Validation(t *testing.T) {
	h, _, _, msgs := newStubHandlers()
	r := newTestRouter(h)

	// the conversation path parameter must be a UUID
	w := doJSON(r, http.MethodPost, "/conversations/not-a-uuid/messages", PostMessageRequest{Body: "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", w.Code)
	}

	convID := uuid.NewString()

	// a body that sanitizes to nothing is rejected before the service runs
	msgs.send = func(_, _, _ string) (*domain.Message, error) {
		t.Fatal("service must not be called for a blank body")
		return nil, nil
	}
	w = doJSON(r, http.MethodPost, "/conversations/"+convID+"/messages", PostMessageRequest{Body: " \r\n "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank body: status %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("blank body code = %q", resp.Code)
	}
}

func TestPostMessage_SanitizesBeforeSend(t *testing.T) {
	h, _, _, msgs := newStubHandlers()
	r := newTestRouter(h)

	var gotBody, gotUser string
	msgs.send = func(userID, _, body string) (*domain.Message, error) {
		gotUser, gotBody = userID, body
		return nil, nil
	}

	w := doJSON(r, http.MethodPost, "/conversations/"+uuid.NewString()+"/messages",
		PostMessageRequest{Body: "  hello\r\nthere\n\n\n\nbye  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if gotBody != "hello\nthere\n\nbye" {
		t.Fatalf("service saw body %q", gotBody)
	}
	if gotUser != "u-test" {
		t.Fatalf("service saw user %q", gotUser)
	}
}

func TestPostMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown conversation", services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"body too long", services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _, _, msgs := newStubHandlers()
			msgs.send = func(_, _, _ string) (*domain.Message, error) { return nil, tc.err }
			r := newTestRouter(h)

			w := doJSON(r, http.MethodPost, "/conversations/"+uuid.NewString()+"/messages",
				PostMessageRequest{Body: "hi"})
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if resp := decodeError(t, w); resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestRecallMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusNoContent, ""},
		{"unknown message", services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"not the sender", services.ErrNotSender, http.StatusForbidden, ErrCodeForbidden},
		{"window closed", services.ErrRecallWindowClosed, http.StatusConflict, ErrCodeRecallWindowClosed},
		{"already recalled", services.ErrAlreadyRecalled, http.StatusConflict, ErrCodeAlreadyRecalled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _, _, msgs := newStubHandlers()
			msgs.recall = func(_, _ string) error { return tc.err }
			r := newTestRouter(h)

			w := doJSON(r, http.MethodPost, "/messages/"+uuid.NewString()+"/recall", nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantCode != "" {
				if resp := decodeError(t, w); resp.Code != tc.wantCode {
					t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
				}
			}
		})
	}

	// malformed message ID never reaches the service
	h, _, _, msgs := newStubHandlers()
	msgs.recall = func(_, _ string) error {
		t.Fatal("service must not be called for a malformed id")
		return nil
	}
	r := newTestRouter(h)
	if w := doJSON(r, http.MethodPost, "/messages/42/recall", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: status %d", w.Code)
	}
}

func TestStartConversation_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"self", services.ErrSelfConversation, http.StatusBadRequest},
		{"unknown peer", services.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _, _, msgs := newStubHandlers()
			msgs.start = func(_, _ string) (*domain.Conversation, error) { return nil, tc.err }
			r := newTestRouter(h)

			w := doJSON(r, http.MethodPost, "/conversations", StartConversationRequest{PeerID: "peer"})
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}

	h, _, _, _ := newStubHandlers()
	r := newTestRouter(h)
	if w := doJSON(r, http.MethodPost, "/conversations", StartConversationRequest{PeerID: "  "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank peer: status %d", w.Code)
	}
}

// newMessageListDB opens a shared in-memory database seeded with one
// conversation between u1 and u2 containing a single message from u1.
func newMessageListDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:msghdlr?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, tbl := range []string{"messages", "conversations"} {
		if err := db.Exec("DELETE FROM " + tbl).Error; err != nil {
			t.Fatalf("reset %s: %v", tbl, err)
		}
	}
	conv, err := repo.CreateConversation(context.Background(), db, "u1", "u2")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	if _, err := repo.CreateMessage(db, conv.ID, "u1", "hello", time.Minute); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return db, conv.ID
}

// doListMessages fetches a conversation's messages as the given user, with
// an optional conditional validator.
func doListMessages(r *gin.Engine, convID, asUser, ifNoneMatch string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/conversations/"+convID+"/messages", nil)
	req.Header.Set("X-User-ID", asUser)
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListMessages_ETagRequiresMembership(t *testing.T) {
	db, convID := newMessageListDB(t)
	h := New(&stubAuthService{}, &stubListingService{}, &services.MessageService{DB: db}, stubNotificationService{})
	r := newTestRouter(h)

	// a participant gets the page plus a validator
	w := doListMessages(r, convID, "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("member list: status %d body %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("member list: missing ETag")
	}

	// conditional revalidation still works for participants
	if w := doListMessages(r, convID, "u1", etag); w.Code != http.StatusNotModified {
		t.Fatalf("member revalidation: status %d, want 304", w.Code)
	}

	// an outsider gets the same answer as a missing conversation, with no
	// validator to learn from
	w = doListMessages(r, convID, "u3", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("outsider list: status %d, want 404", w.Code)
	}
	if got := w.Header().Get("ETag"); got != "" {
		t.Fatalf("outsider list: leaked ETag %q", got)
	}

	// replaying a participant's validator must not help the outsider
	if w := doListMessages(r, convID, "u3", etag); w.Code != http.StatusNotFound {
		t.Fatalf("outsider with replayed validator: status %d, want 404", w.Code)
	}

	// unknown conversation stays a plain 404
	if w := doListMessages(r, uuid.NewString(), "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation: status %d, want 404", w.Code)
	}
}
