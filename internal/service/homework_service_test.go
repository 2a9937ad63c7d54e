package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/pkg/textnorm"
)

type fakeHomeworkSetRepo struct {
	sets   map[uint]models.HomeworkSet
	nextID uint
}

func newFakeHomeworkSetRepo() *fakeHomeworkSetRepo {
	return &fakeHomeworkSetRepo{sets: make(map[uint]models.HomeworkSet), nextID: 1}
}

func (f *fakeHomeworkSetRepo) List(ctx context.Context, filter repository.HomeworkSetFilter) ([]models.HomeworkSet, error) {
	var result []models.HomeworkSet
	for _, set := range f.sets {
		result = append(result, set)
	}
	return result, nil
}

func (f *fakeHomeworkSetRepo) GetByID(ctx context.Context, id uint) (models.HomeworkSet, error) {
	set, ok := f.sets[id]
	if !ok {
		return models.HomeworkSet{}, gorm.ErrRecordNotFound
	}
	return set, nil
}

func (f *fakeHomeworkSetRepo) Create(ctx context.Context, set *models.HomeworkSet) error {
	set.ID = f.nextID
	f.nextID++
	f.sets[set.ID] = *set
	return nil
}

func (f *fakeHomeworkSetRepo) Update(ctx context.Context, set *models.HomeworkSet) error {
	f.sets[set.ID] = *set
	return nil
}

func (f *fakeHomeworkSetRepo) Delete(ctx context.Context, id uint) error {
	delete(f.sets, id)
	return nil
}

type fakeAnswerRecordRepo struct {
	records map[string][]models.AnswerRecord
}

func newFakeAnswerRecordRepo() *fakeAnswerRecordRepo {
	return &fakeAnswerRecordRepo{records: make(map[string][]models.AnswerRecord)}
}

func (f *fakeAnswerRecordRepo) ListBySetAndRole(ctx context.Context, setID uint, role string) ([]models.AnswerRecord, error) {
	return f.records[role], nil
}

func (f *fakeAnswerRecordRepo) ReplaceForSetAndRole(ctx context.Context, setID uint, role string, records []models.AnswerRecord) error {
	f.records[role] = records
	return nil
}

func (f *fakeAnswerRecordRepo) CountBySet(ctx context.Context, setID uint) (map[string]int64, error) {
	counts := make(map[string]int64)
	for role, records := range f.records {
		if len(records) > 0 {
			counts[role] = int64(len(records))
		}
	}
	return counts, nil
}

type storageStub struct {
	uploads int
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	s.uploads++
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

func newHomeworkService(sets *fakeHomeworkSetRepo, records *fakeAnswerRecordRepo, storage FileStorage) HomeworkSetService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewHomeworkSetService(sets, records, storage, 1, validate, testLogger())
}

func TestHomeworkSetServiceCreateValidates(t *testing.T) {
	svc := newHomeworkService(newFakeHomeworkSetRepo(), newFakeAnswerRecordRepo(), &storageStub{})

	_, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Subject: "math"})
	require.Error(t, err)

	resp, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Title: "第三单元口算", Subject: "math"})
	require.NoError(t, err)
	require.Equal(t, models.HomeworkSetStatusDraft, resp.Status)
	require.NotZero(t, resp.ID)
}

func TestHomeworkSetServiceIngestRejectsUnknownRole(t *testing.T) {
	sets := newFakeHomeworkSetRepo()
	svc := newHomeworkService(sets, newFakeAnswerRecordRepo(), &storageStub{})

	created, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Title: "t", Subject: "math"})
	require.NoError(t, err)

	_, err = svc.IngestRecords(context.Background(), created.ID, "teacher", dto.AnswerRecordsIngestRequest{
		Records: []dto.AnswerRecordRequest{{Index: "1", UserAnswer: "5", Correct: true}},
	})
	require.ErrorIs(t, err, ErrInvalidAnswerRole)
}

func TestHomeworkSetServiceIngestParsesCorrectStrictly(t *testing.T) {
	sets := newFakeHomeworkSetRepo()
	records := newFakeAnswerRecordRepo()
	svc := newHomeworkService(sets, records, &storageStub{})

	created, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Title: "t", Subject: "math"})
	require.NoError(t, err)

	_, err = svc.IngestRecords(context.Background(), created.ID, models.AnswerRoleBaseline, dto.AnswerRecordsIngestRequest{
		Records: []dto.AnswerRecordRequest{
			{Index: "1", UserAnswer: "5", Correct: true},
			{Index: "2", UserAnswer: "6", Correct: "No"},
			{Index: "3", UserAnswer: "7", Correct: "yes"},
		},
	})
	require.NoError(t, err)

	stored := records.records[models.AnswerRoleBaseline]
	require.Len(t, stored, 3)
	require.Equal(t, "true", stored[0].Correct)
	require.Equal(t, "false", stored[1].Correct)
	require.Equal(t, "true", stored[2].Correct)

	_, err = svc.IngestRecords(context.Background(), created.ID, models.AnswerRoleBaseline, dto.AnswerRecordsIngestRequest{
		Records: []dto.AnswerRecordRequest{{Index: "1", UserAnswer: "5", Correct: "maybe"}},
	})
	require.ErrorIs(t, err, textnorm.ErrCorrectFlag)
}

func TestHomeworkSetServiceIngestMarksReady(t *testing.T) {
	sets := newFakeHomeworkSetRepo()
	records := newFakeAnswerRecordRepo()
	svc := newHomeworkService(sets, records, &storageStub{})

	created, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Title: "t", Subject: "math"})
	require.NoError(t, err)

	payload := dto.AnswerRecordsIngestRequest{
		Records: []dto.AnswerRecordRequest{{Index: "1", UserAnswer: "5", Correct: true}},
	}

	resp, err := svc.IngestRecords(context.Background(), created.ID, models.AnswerRoleBaseline, payload)
	require.NoError(t, err)
	require.Equal(t, models.HomeworkSetStatusDraft, resp.Status)

	resp, err = svc.IngestRecords(context.Background(), created.ID, models.AnswerRoleAI, payload)
	require.NoError(t, err)
	require.Equal(t, models.HomeworkSetStatusReady, resp.Status)
	require.Equal(t, int64(1), resp.RecordCounts[models.AnswerRoleBaseline])
	require.Equal(t, int64(1), resp.RecordCounts[models.AnswerRoleAI])
}

func TestHomeworkSetServiceAttachScan(t *testing.T) {
	sets := newFakeHomeworkSetRepo()
	storage := &storageStub{}
	svc := newHomeworkService(sets, newFakeAnswerRecordRepo(), storage)

	created, err := svc.Create(context.Background(), dto.HomeworkSetCreateRequest{Title: "t", Subject: "math"})
	require.NoError(t, err)

	tooLarge := buildScanHeader(t, "scan.png", bytes.Repeat([]byte("a"), 2*1024*1024))
	_, err = svc.AttachScan(context.Background(), created.ID, tooLarge)
	require.ErrorIs(t, err, ErrScanTooLarge)

	text := buildScanHeader(t, "scan.txt", []byte("plain text"))
	_, err = svc.AttachScan(context.Background(), created.ID, text)
	require.ErrorIs(t, err, ErrScanTypeNotAllowed)

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	png := buildScanHeader(t, "scan.png", pngHeader)
	resp, err := svc.AttachScan(context.Background(), created.ID, png)
	require.NoError(t, err)
	require.Contains(t, resp.ScanURL, "homework-set-")
	require.Equal(t, 1, storage.uploads)
}

func buildScanHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"scan\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["scan"]
	require.Len(t, files, 1)
	return files[0]
}
