package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/gnarlyhq/gnarly/core"
	"github.com/gnarlyhq/gnarly/core/pdf"
	"github.com/gnarlyhq/gnarly/core/user"
	emailsvc "github.com/gnarlyhq/gnarly/services/email"
	logsvc "github.com/gnarlyhq/gnarly/services/logger"
	sqlxrepos "github.com/gnarlyhq/gnarly/storage/database/sqlx"
	"github.com/gnarlyhq/gnarly/storage/filestore"
	testutil "github.com/gnarlyhq/gnarly/tests"
)

type testEnv struct {
	server Server
	store  *filestore.Store
	usrSvc *user.Service
	pdfSvc *pdf.Service
}

func setup(t *testing.T) testEnv {
	t.Helper()

	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)

	store, err := filestore.New(conf.UploadDir)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	translator, _ := ut.New(en.New()).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	pdfSvc := pdf.NewService(sqlxrepos.NewPDFRepository(db), store, usrSvc, logger)

	server := NewServer(&Options{
		ClientOrigin:   conf.ClientOrigin,
		UploadDir:      store.Dir(),
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		PDFSvc:         pdfSvc,
	})
	return testEnv{server: server, store: store, usrSvc: usrSvc, pdfSvc: pdfSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// newUploadRequest builds a multipart POST /api/uploads request. An empty
// filename omits the file part entirely.
func newUploadRequest(t *testing.T, userID, filename, contentType string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	if userID != "" {
		if err := w.WriteField("userId", userID); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
		if _, err = part.Write(content); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	return req, rec
}

func createUser(t *testing.T, env testEnv, email, name string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.TODO(), user.NewUser{Email: email, Name: name})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func uploadPDF(t *testing.T, env testEnv, userID int, name string, content []byte) pdf.Descriptor {
	t.Helper()
	desc, err := env.pdfSvc.Upload(context.TODO(), pdf.Upload{
		UserID:       userID,
		OriginalName: name,
		MimeType:     "application/pdf",
		SizeBytes:    int64(len(content)),
		Content:      bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("uploadPDF() failed: %v", err)
	}
	return desc
}

func uploadDirEntries(t *testing.T, env testEnv) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(env.store.Dir())
	if err != nil {
		t.Fatalf("uploadDirEntries() failed: %v", err)
	}
	return entries
}

func sentMessagesTo(email string) []core.EmailMessage {
	msgs := make([]core.EmailMessage, 0)
	for _, msg := range emailsvc.SentMessages {
		for _, to := range msg.To {
			if to.Address == email {
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; body = %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
