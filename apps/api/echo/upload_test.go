package echoapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnarlyhq/gnarly/core/pdf"
)

var storedNameRe = regexp.MustCompile(`^[0-9a-f]{32}\.pdf$`)

func Test_uploadApi_create(t *testing.T) {
	env := setup(t)
	usr := createUser(t, env, "a@x.com", "A")
	content := []byte("%PDF-1.4\nsome lecture notes")

	req, rec := newUploadRequest(t, fmt.Sprintf("%d", usr.ID), "report.pdf", "application/pdf", content)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var desc pdf.Descriptor
	unmarshallObj(t, rec, &desc)
	assert.NotZero(t, desc.ID)
	assert.Equal(t, usr.ID, desc.UserID)
	assert.Equal(t, "report.pdf", desc.OriginalName)
	assert.Equal(t, int64(len(content)), desc.SizeBytes)
	assert.Equal(t, "application/pdf", desc.MimeType)
	assert.Regexp(t, storedNameRe, desc.StoredName)
	assert.Equal(t, "/files/"+desc.StoredName, desc.URL)
	assert.False(t, desc.UploadedAt.IsZero())

	// the blob landed on disk under the stored name, bytes intact
	got, err := os.ReadFile(filepath.Join(env.store.Dir(), desc.StoredName))
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// ...and the descriptor URL resolves to the same bytes
	req, rec = newRequest(http.MethodGet, desc.URL)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
}

func Test_uploadApi_create_permissiveTypeCheck(t *testing.T) {
	env := setup(t)
	usr := createUser(t, env, "a@x.com", "A")
	userID := fmt.Sprintf("%d", usr.ID)

	// mislabeled content type but a .pdf name is accepted; so is a declared
	// application/pdf with an odd name. Only failing both signals rejects.
	req, rec := newUploadRequest(t, userID, "Report.PDF", "application/octet-stream", []byte("%PDF-1.4"))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req, rec = newUploadRequest(t, userID, "scan.bin", "application/pdf", []byte("%PDF-1.4"))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req, rec = newUploadRequest(t, userID, "notes.txt", "text/plain", []byte("plain text"))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_uploadApi_create_failuresLeaveNoState(t *testing.T) {
	env := setup(t)
	createUser(t, env, "a@x.com", "A")
	content := []byte("%PDF-1.4")

	tests := []struct {
		name     string
		userID   string
		filename string
		mimeType string
		wantCode int
		wantData []byte
	}{
		{
			name:     "unknown owner",
			userID:   "1984",
			filename: "report.pdf",
			mimeType: "application/pdf",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrOwnerNotFound.Error()}),
		},
		{
			name:     "non-numeric owner",
			userID:   "abc",
			filename: "report.pdf",
			mimeType: "application/pdf",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrInvalidOwner.Error()}),
		},
		{
			name:     "negative owner",
			userID:   "-5",
			filename: "report.pdf",
			mimeType: "application/pdf",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrInvalidOwner.Error()}),
		},
		{
			name:     "missing owner field",
			userID:   "",
			filename: "report.pdf",
			mimeType: "application/pdf",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrInvalidOwner.Error()}),
		},
		{
			name:     "missing file field",
			userID:   "1",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrMissingFile.Error()}),
		},
		{
			name:     "neither pdf type nor pdf name",
			userID:   "1",
			filename: "notes.txt",
			mimeType: "text/plain",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrNotPDF.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, tt.userID, tt.filename, tt.mimeType, content)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)

			// no metadata row, no orphaned blob
			req, rec = newRequest(http.MethodGet, "/api/uploads")
			env.server.ServeHTTP(rec, req)
			assert.JSONEq(t, "[]", rec.Body.String())
			assert.Empty(t, uploadDirEntries(t, env))
		})
	}
}

func Test_uploadApi_list(t *testing.T) {
	env := setup(t)
	a := createUser(t, env, "a@x.com", "A")
	b := createUser(t, env, "b@x.com", "B")

	req, rec := newRequest(http.MethodGet, "/api/uploads")
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	d1 := uploadPDF(t, env, a.ID, "one.pdf", []byte("%PDF-1.4 one"))
	d2 := uploadPDF(t, env, b.ID, "two.pdf", []byte("%PDF-1.4 two"))
	d3 := uploadPDF(t, env, a.ID, "three.pdf", []byte("%PDF-1.4 three"))

	req, rec = newRequest(http.MethodGet, "/api/uploads")
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var all []pdf.Descriptor
	unmarshallObj(t, rec, &all)
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, []int{d3.ID, d2.ID, d1.ID}, []int{all[0].ID, all[1].ID, all[2].ID})

	// filtered to one owner
	req, rec = newRequest(http.MethodGet, fmt.Sprintf("/api/uploads/user/%d", a.ID))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var owned []pdf.Descriptor
	unmarshallObj(t, rec, &owned)
	require.Len(t, owned, 2)
	assert.Equal(t, []int{d3.ID, d1.ID}, []int{owned[0].ID, owned[1].ID})

	// unknown and unparseable owners both yield empty, never an error
	for _, path := range []string{"/api/uploads/user/1984", "/api/uploads/user/abc"} {
		req, rec = newRequest(http.MethodGet, path)
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	}
}

func Test_uploadApi_destroy(t *testing.T) {
	env := setup(t)
	usr := createUser(t, env, "a@x.com", "A")
	desc := uploadPDF(t, env, usr.ID, "report.pdf", []byte("%PDF-1.4"))

	tests := []httpTest{
		{
			name:     "unknown id",
			path:     "/api/uploads/1984",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrNotFound.Error()}),
		},
		{
			name:     "non-numeric id",
			path:     "/api/uploads/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: pdf.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodDelete, tt.path)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the failed attempts must not have mutated anything
	req, rec := newRequest(http.MethodGet, fmt.Sprintf("/api/uploads/user/%d", usr.ID))
	env.server.ServeHTTP(rec, req)
	var owned []pdf.Descriptor
	unmarshallObj(t, rec, &owned)
	require.Len(t, owned, 1)

	req, rec = newRequest(http.MethodDelete, fmt.Sprintf("/api/uploads/%d", desc.ID))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// gone from listings, blob irretrievable
	req, rec = newRequest(http.MethodGet, fmt.Sprintf("/api/uploads/user/%d", usr.ID))
	env.server.ServeHTTP(rec, req)
	assert.JSONEq(t, "[]", rec.Body.String())

	req, rec = newRequest(http.MethodGet, desc.URL)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_uploadApi_repeatedUploadsSameOwner(t *testing.T) {
	env := setup(t)
	usr := createUser(t, env, "a@x.com", "A")

	const n = 5
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		desc := uploadPDF(t, env, usr.ID, fmt.Sprintf("doc-%d.pdf", i), []byte(fmt.Sprintf("%%PDF-1.4 doc %d", i)))
		ids = append(ids, desc.ID)
	}

	req, rec := newRequest(http.MethodGet, fmt.Sprintf("/api/uploads/user/%d", usr.ID))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var owned []pdf.Descriptor
	unmarshallObj(t, rec, &owned)
	require.Len(t, owned, n)
	for i, desc := range owned {
		assert.Equal(t, ids[n-1-i], desc.ID) // descending identifier order
		assert.Equal(t, usr.ID, desc.UserID)
	}
}
