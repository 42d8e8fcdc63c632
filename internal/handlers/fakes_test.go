package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
	"filemind/backend/internal/services"
	"filemind/backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testCodec(t *testing.T) *fieldcodec.Codec {
	t.Helper()
	codec, err := fieldcodec.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return codec
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(register func(r *gin.Engine), req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	register(r)
	return serveOn(r, req)
}

func serveOn(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// fakeUserStore is an in-memory UserStore. The mutex only guards the prompt
// counter, which is the one path the handlers hit concurrently.
type fakeUserStore struct {
	mu    sync.Mutex
	users []*models.User
}

func (f *fakeUserStore) byUsernameHash(hash string) *models.User {
	for _, u := range f.users {
		if u.UsernameHash == hash {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) byEmailHash(hash string) *models.User {
	for _, u := range f.users {
		if u.EmailHash == hash {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) Insert(ctx context.Context, user *models.User) error {
	if f.byEmailHash(user.EmailHash) != nil || f.byUsernameHash(user.UsernameHash) != nil {
		return store.ErrDuplicate
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	clone := *user
	f.users = append(f.users, &clone)
	return nil
}

func (f *fakeUserStore) FindByUsernameHash(ctx context.Context, hash string) (*models.User, error) {
	if u := f.byUsernameHash(hash); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) FindByEmailHash(ctx context.Context, hash string) (*models.User, error) {
	if u := f.byEmailHash(hash); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) ExistsByEmailHash(ctx context.Context, hash string) (bool, error) {
	return f.byEmailHash(hash) != nil, nil
}

func (f *fakeUserStore) ExistsByUsernameHash(ctx context.Context, hash string) (bool, error) {
	return f.byUsernameHash(hash) != nil, nil
}

func (f *fakeUserStore) UpdatePasswordByEmailHash(ctx context.Context, hash, passwordHash string) error {
	u := f.byEmailHash(hash)
	if u == nil {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SetPushToken(ctx context.Context, hash, token string) error {
	u := f.byUsernameHash(hash)
	if u == nil {
		return store.ErrNotFound
	}
	u.PushToken = token
	return nil
}

func (f *fakeUserStore) SetProfileImageURL(ctx context.Context, hash, url string) error {
	u := f.byUsernameHash(hash)
	if u == nil {
		return store.ErrNotFound
	}
	u.ProfileImageURL = url
	return nil
}

func (f *fakeUserStore) PushFile(ctx context.Context, hash string, file models.FileSummary) error {
	u := f.byUsernameHash(hash)
	if u == nil {
		return store.ErrNotFound
	}
	u.Files = append(u.Files, file)
	return nil
}

func (f *fakeUserStore) PullFile(ctx context.Context, hash string, fileID primitive.ObjectID) (*models.User, error) {
	u := f.byUsernameHash(hash)
	if u == nil {
		return nil, store.ErrNotFound
	}
	kept := u.Files[:0]
	for _, file := range u.Files {
		if file.ID != fileID {
			kept = append(kept, file)
		}
	}
	u.Files = kept
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) IncrementPromptUsage(ctx context.Context, hash string, limit int, unlimited bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byUsernameHash(hash)
	if u == nil {
		return 0, store.ErrNotFound
	}
	if !unlimited && u.PromptUsageCount >= limit {
		return 0, store.ErrNotFound
	}
	u.PromptUsageCount++
	return u.PromptUsageCount, nil
}

func (f *fakeUserStore) GrantPremium(ctx context.Context, hash string, purchase models.PlanPurchase) error {
	u := f.byUsernameHash(hash)
	if u == nil {
		return store.ErrNotFound
	}
	u.IsPremium = true
	u.PremiumHistory = append(u.PremiumHistory, purchase)
	return nil
}

func (f *fakeUserStore) DeleteByEmailHash(ctx context.Context, hash string) error {
	for i, u := range f.users {
		if u.EmailHash == hash {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeFileIndexStore is an in-memory FileIndexStore.
type fakeFileIndexStore struct {
	rows       []models.FileIndex
	deleteErr  error
	deletedFor []string
}

func (f *fakeFileIndexStore) Insert(ctx context.Context, row *models.FileIndex) error {
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeFileIndexStore) DeleteByPathHash(ctx context.Context, pathHash string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedFor = append(f.deletedFor, pathHash)
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.StoragePathHash != pathHash {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeFileIndexStore) DeleteByOwner(ctx context.Context, ownerHash string) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.OwnerUsernameHash != ownerHash {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeFileIndexStore) findByPathHash(pathHash string) *models.FileIndex {
	for i := range f.rows {
		if f.rows[i].StoragePathHash == pathHash {
			return &f.rows[i]
		}
	}
	return nil
}

// fakeBlobStore is an in-memory BlobStore.
type fakeBlobStore struct {
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	deleted   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return f.ObjectURL(key), nil
}

func (f *fakeBlobStore) ObjectURL(key string) string {
	return "https://storage.example.com/test-bucket/" + key
}

func (f *fakeBlobStore) URI(key string) string {
	return "gs://test-bucket/" + key
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(f.objects, key)
			f.deleted = append(f.deleted, key)
		}
	}
	return nil
}

func (f *fakeBlobStore) SignedUploadURL(key, contentType string) (string, error) {
	return "https://storage.example.com/signed/" + key, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, gsURI string) (string, error) {
	return f.text, f.err
}

type fakeDocEmbedder struct {
	vector []float32
}

func (f *fakeDocEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

type fakeMailer struct {
	sent []string // "email:code"
	err  error
}

func (f *fakeMailer) SendOTP(to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, fmt.Sprintf("%s:%s", to, code))
	return nil
}

// fakeOTPStore is an in-memory OTPStore.
type fakeOTPStore struct {
	records []models.OTPRecord
}

func (f *fakeOTPStore) Replace(ctx context.Context, record *models.OTPRecord) error {
	kept := f.records[:0]
	for _, r := range f.records {
		if r.EmailHash != record.EmailHash {
			kept = append(kept, r)
		}
	}
	f.records = append(kept, *record)
	return nil
}

func (f *fakeOTPStore) Find(ctx context.Context, emailHash, code string) (*models.OTPRecord, error) {
	for _, r := range f.records {
		if r.EmailHash == emailHash && r.Code == code {
			clone := r
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeOTPStore) DeleteAll(ctx context.Context, emailHash string) error {
	kept := f.records[:0]
	for _, r := range f.records {
		if r.EmailHash != emailHash {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

// fakePaymentGateway verifies with the real HMAC against a fixed secret.
type fakePaymentGateway struct {
	secret    string
	order     map[string]interface{}
	createErr error
}

func (f *fakePaymentGateway) CreateOrder(amount int64) (map[string]interface{}, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.order != nil {
		return f.order, nil
	}
	return map[string]interface{}{"id": "order_test", "amount": amount, "currency": "INR"}, nil
}

func (f *fakePaymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return services.VerifyRazorpaySignature(orderID, paymentID, signature, f.secret)
}
