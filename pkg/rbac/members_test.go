package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/contextkeys"
	"github.com/platinummonkey/coachgate/pkg/orgs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newUser = "9b1d2c3e-4f5a-4b6c-8d7e-0f1a2b3c4d99"

func TestHandlers_ListMembers(t *testing.T) {
	store := newFakeStore(
		member(userU1, orgO1, auth.RoleMember),
		member(coachC, orgO1, auth.RoleOwner),
		member(userU2, orgO2, auth.RoleMember),
	)
	router := newTestRouter(store)

	w := doRequest(t, router, http.MethodGet, "/v1/orgs/"+orgO1+"/members", "tok-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, orgO1, body["organization_id"])
	assert.Len(t, body["members"], 2)

	w = doRequest(t, router, http.MethodGet, "/v1/orgs/"+orgO1+"/members", "tok-u2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"permission check failed"}`, w.Body.String())
}

func TestHandlers_ListMembersByRole(t *testing.T) {
	store := newFakeStore(
		member(userU1, orgO1, auth.RoleMember),
		member(coachC, orgO1, auth.RoleOwner),
	)
	router := newTestRouter(store)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{"owners", "?role=owner", http.StatusOK, []string{coachC}},
		{"members", "?role=member", http.StatusOK, []string{userU1}},
		{"nobody holds the role", "?role=admin", http.StatusOK, []string{}},
		{"unknown role", "?role=coach", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, "/v1/orgs/"+orgO1+"/members"+tt.query, "tok-u1", nil)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantIDs == nil {
				return
			}

			got := []string{}
			for _, m := range decodeBody(t, w)["members"].([]interface{}) {
				got = append(got, m.(map[string]interface{})["user_id"].(string))
			}
			assert.ElementsMatch(t, tt.wantIDs, got)
		})
	}
}

func TestHandlers_AddMember(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"coach adds", "tok-coach", AddMemberRequest{UserID: newUser, Role: "member"}, http.StatusCreated, ""},
		{"member passes gate but is not a coach", "tok-u1", AddMemberRequest{UserID: newUser, Role: "member"}, http.StatusForbidden, "forbidden"},
		{"non member", "tok-u2", AddMemberRequest{UserID: newUser, Role: "member"}, http.StatusForbidden, "permission check failed"},
		{"duplicate", "tok-coach", AddMemberRequest{UserID: userU1, Role: "admin"}, http.StatusConflict, "member already exists"},
		{"bad user id", "tok-coach", AddMemberRequest{UserID: "nope", Role: "member"}, http.StatusBadRequest, "invalid user id"},
		{"bad role", "tok-coach", AddMemberRequest{UserID: newUser, Role: "coach"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(
				member(userU1, orgO1, auth.RoleMember),
				member(coachC, orgO1, auth.RoleAdmin),
			)
			router := newTestRouter(store)

			w := doRequest(t, router, http.MethodPost, "/v1/orgs/"+orgO1+"/members", tt.token, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
			}
			if tt.wantStatus == http.StatusCreated {
				body := decodeBody(t, w)
				assert.Equal(t, newUser, body["user_id"])
				assert.Equal(t, coachC, body["invited_by"])
			}
		})
	}
}

func TestHandlers_AddedMemberPassesGate(t *testing.T) {
	store := newFakeStore(member(coachC, orgO1, auth.RoleOwner))
	router := newTestRouter(store)

	path := "/v1/orgs/" + orgO1 + "/athletes"
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, http.MethodGet, path, "tok-u2", nil).Code)

	w := doRequest(t, router, http.MethodPost, "/v1/orgs/"+orgO1+"/members", "tok-coach", AddMemberRequest{UserID: userU2, Role: "member"})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, path, "tok-u2", nil).Code)
}

func TestHandlers_UpdateMember(t *testing.T) {
	store := newFakeStore(
		member(userU1, orgO1, auth.RoleMember),
		member(coachC, orgO1, auth.RoleOwner),
	)
	router := newTestRouter(store)

	w := doRequest(t, router, http.MethodPut, "/v1/orgs/"+orgO1+"/members/"+userU1, "tok-coach", UpdateMemberRequest{Role: "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin", decodeBody(t, w)["role"])

	// promoted: u1 now reads coach-only resources
	w = doRequest(t, router, http.MethodGet, "/v1/orgs/"+orgO1+"/coaches", "tok-u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPut, "/v1/orgs/"+orgO1+"/members/"+newUser, "tok-coach", UpdateMemberRequest{Role: "member"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPut, "/v1/orgs/"+orgO1+"/members/not-a-uuid", "tok-coach", UpdateMemberRequest{Role: "member"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_RemoveMember(t *testing.T) {
	store := newFakeStore(
		member(userU1, orgO1, auth.RoleMember),
		member(coachC, orgO1, auth.RoleOwner),
	)
	router := newTestRouter(store)

	w := doRequest(t, router, http.MethodDelete, "/v1/orgs/"+orgO1+"/members/"+coachC, "tok-u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/v1/orgs/"+orgO1+"/members/"+userU1, "tok-coach", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, "/v1/orgs/"+orgO1+"/membership", "tok-u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"permission check failed"}`, w.Body.String())

	w = doRequest(t, router, http.MethodDelete, "/v1/orgs/"+orgO1+"/members/"+userU1, "tok-coach", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_CoachLookupFailureDenies(t *testing.T) {
	store := newFakeStore(member(coachC, orgO1, auth.RoleOwner))
	h := NewHandlers(NewEngine(NewMatrix(), store), store, orgs.NewClassifier(store, store))

	called := false
	handler := h.coachOnly(func(http.ResponseWriter, *http.Request) { called = true })

	store.err = errors.New("connection reset")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(contextkeys.WithAuth(req.Context(), &auth.AuthContext{UserID: coachC, OrganizationID: orgO1}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"permission check failed"}`, w.Body.String())
}
