package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeEventService struct {
	view *domain.EventView
	list []*domain.EventView
	err  error

	lastEvent       *domain.Event
	lastInitiatorID string
	lastEventID     string
	lastUpdate      domain.EventUpdate
	lastPage        domain.Page
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) (*domain.EventView, error) {
	f.lastEvent = event
	if f.err != nil {
		return nil, f.err
	}
	return &domain.EventView{Event: *event}, nil
}

func (f *fakeEventService) ListInitiatorEvents(_ context.Context, initiatorID string, page domain.Page) ([]*domain.EventView, error) {
	f.lastInitiatorID, f.lastPage = initiatorID, page
	return f.list, f.err
}

func (f *fakeEventService) GetInitiatorEvent(_ context.Context, initiatorID, eventID string) (*domain.EventView, error) {
	f.lastInitiatorID, f.lastEventID = initiatorID, eventID
	return f.view, f.err
}

func (f *fakeEventService) UpdateEventByInitiator(_ context.Context, initiatorID, eventID string, update domain.EventUpdate) (*domain.EventView, error) {
	f.lastInitiatorID, f.lastEventID, f.lastUpdate = initiatorID, eventID, update
	return f.view, f.err
}

func (f *fakeEventService) UpdateEventByAdmin(_ context.Context, eventID string, update domain.EventUpdate) (*domain.EventView, error) {
	f.lastEventID, f.lastUpdate = eventID, update
	return f.view, f.err
}

type fakeListingService struct {
	view *domain.EventView
	list []*domain.EventView
	err  error

	lastFilter  domain.EventFilter
	lastSort    domain.EventSort
	lastPage    domain.Page
	lastVisit   domain.Visit
	lastEventID string
}

func (f *fakeListingService) SearchPublic(_ context.Context, filter domain.EventFilter, sort domain.EventSort, page domain.Page, visit domain.Visit) ([]*domain.EventView, error) {
	f.lastFilter, f.lastSort, f.lastPage, f.lastVisit = filter, sort, page, visit
	return f.list, f.err
}

func (f *fakeListingService) GetPublished(_ context.Context, eventID string, visit domain.Visit) (*domain.EventView, error) {
	f.lastEventID, f.lastVisit = eventID, visit
	return f.view, f.err
}

func (f *fakeListingService) SearchAdmin(_ context.Context, filter domain.EventFilter, page domain.Page) ([]*domain.EventView, error) {
	f.lastFilter, f.lastPage = filter, page
	return f.list, f.err
}

type fakeRequestService struct {
	req    *domain.ParticipationRequest
	list   []*domain.ParticipationRequest
	result *domain.BulkUpdateResult
	err    error

	lastUserID  string
	lastID      string
	lastIDs     []string
	lastAction  domain.BulkAction
	submitCalls int
}

func (f *fakeRequestService) Submit(_ context.Context, requesterID, eventID string) (*domain.ParticipationRequest, error) {
	f.submitCalls++
	f.lastUserID, f.lastID = requesterID, eventID
	return f.req, f.err
}

func (f *fakeRequestService) Cancel(_ context.Context, requesterID, requestID string) (*domain.ParticipationRequest, error) {
	f.lastUserID, f.lastID = requesterID, requestID
	return f.req, f.err
}

func (f *fakeRequestService) ListByRequester(_ context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	f.lastUserID = requesterID
	return f.list, f.err
}

func (f *fakeRequestService) ListForEvent(_ context.Context, initiatorID, eventID string) ([]*domain.ParticipationRequest, error) {
	f.lastUserID, f.lastID = initiatorID, eventID
	return f.list, f.err
}

func (f *fakeRequestService) BulkUpdate(_ context.Context, initiatorID, eventID string, requestIDs []string, action domain.BulkAction) (*domain.BulkUpdateResult, error) {
	f.lastUserID, f.lastID, f.lastIDs, f.lastAction = initiatorID, eventID, requestIDs, action
	return f.result, f.err
}

type fakeUserService struct {
	user     *domain.User
	err      error
	lastUser *domain.User
}

func (f *fakeUserService) Create(_ context.Context, user *domain.User) error {
	f.lastUser = user
	if f.err != nil {
		return f.err
	}
	user.ID = "3f0d5a52-0a4e-4b0e-9d7c-1a1e3a9c2b10"
	return nil
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	return f.user, f.err
}

type fakeCategoryService struct {
	category *domain.Category
	err      error
	lastName string
}

func (f *fakeCategoryService) Create(_ context.Context, name string) (*domain.Category, error) {
	f.lastName = name
	return f.category, f.err
}

func (f *fakeCategoryService) GetByID(_ context.Context, id string) (*domain.Category, error) {
	return f.category, f.err
}

// serve runs handler for a request matched against pattern, so path values are populated.
func serve(pattern string, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, _ := json.Marshal(b)
		r = bytes.NewReader(buf)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// decodeData decodes the envelope and re-marshals its data into dest.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Error)
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

// errorCode decodes the envelope and returns its error code.
func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

const (
	userID  = "6b1f5c5e-9a8a-4d6c-8f1a-0d9c1e2b3a41"
	eventID = "9c2e7f10-3b4d-4a5e-8f60-7a8b9c0d1e2f"
	catID   = "0f1e2d3c-4b5a-4978-8695-a4b3c2d1e0f9"
	reqID   = "1a2b3c4d-5e6f-4a8b-9c0d-1e2f3a4b5c6d"
)
