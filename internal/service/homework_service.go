package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/pkg/textnorm"
)

var (
	// ErrHomeworkSetNotFound indicates the requested set does not exist.
	ErrHomeworkSetNotFound = errors.New("homework set not found")
	// ErrInvalidAnswerRole indicates an unknown record role was requested.
	ErrInvalidAnswerRole = errors.New("invalid answer record role")
	// ErrScanTooLarge indicates the scan upload exceeded the configured limit.
	ErrScanTooLarge = errors.New("scan exceeds maximum allowed size")
	// ErrScanTypeNotAllowed indicates the uploaded scan is not an image.
	ErrScanTypeNotAllowed = errors.New("scan file type not allowed")
)

// FileStorage abstracts scan upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// HomeworkSetService manages homework sets and their answer records.
type HomeworkSetService interface {
	Create(ctx context.Context, payload dto.HomeworkSetCreateRequest) (dto.HomeworkSetResponse, error)
	Update(ctx context.Context, id uint, payload dto.HomeworkSetUpdateRequest) (dto.HomeworkSetResponse, error)
	Get(ctx context.Context, id uint) (dto.HomeworkSetResponse, error)
	List(ctx context.Context, filter repository.HomeworkSetFilter) ([]dto.HomeworkSetResponse, error)
	Delete(ctx context.Context, id uint) error
	IngestRecords(ctx context.Context, id uint, role string, payload dto.AnswerRecordsIngestRequest) (dto.HomeworkSetResponse, error)
	AttachScan(ctx context.Context, id uint, file *multipart.FileHeader) (dto.HomeworkSetResponse, error)
}

type homeworkSetService struct {
	sets      repository.HomeworkSetRepository
	records   repository.AnswerRecordRepository
	storage   FileStorage
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	maxScan   int64
}

// NewHomeworkSetService constructs a homework set service. maxScanMB bounds
// scan uploads; values <= 0 fall back to 10 MB.
func NewHomeworkSetService(sets repository.HomeworkSetRepository, records repository.AnswerRecordRepository, storage FileStorage, maxScanMB int, validate *validator.Validate, logger zerolog.Logger) HomeworkSetService {
	if maxScanMB <= 0 {
		maxScanMB = 10
	}

	return &homeworkSetService{
		sets:      sets,
		records:   records,
		storage:   storage,
		validator: validate,
		logger:    logger.With().Str("component", "homework_set_service").Logger(),
		tracer:    otel.Tracer("github.com/penmark/hweval-api/internal/service/homework"),
		maxScan:   int64(maxScanMB) * 1024 * 1024,
	}
}

func (s *homeworkSetService) Create(ctx context.Context, payload dto.HomeworkSetCreateRequest) (dto.HomeworkSetResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	set := models.HomeworkSet{
		Title:        strings.TrimSpace(payload.Title),
		Subject:      strings.TrimSpace(payload.Subject),
		GradeLevel:   strings.TrimSpace(payload.GradeLevel),
		QuestionType: strings.TrimSpace(payload.QuestionType),
		Status:       models.HomeworkSetStatusDraft,
	}

	if err := s.sets.Create(ctx, &set); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	s.logger.Info().Uint("set_id", set.ID).Str("subject", set.Subject).Msg("homework set created")

	return dto.NewHomeworkSetResponse(set, nil), nil
}

func (s *homeworkSetService) Update(ctx context.Context, id uint, payload dto.HomeworkSetUpdateRequest) (dto.HomeworkSetResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	set, err := s.loadSet(ctx, id)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	if payload.Title != nil {
		set.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Subject != nil {
		set.Subject = strings.TrimSpace(*payload.Subject)
	}
	if payload.GradeLevel != nil {
		set.GradeLevel = strings.TrimSpace(*payload.GradeLevel)
	}
	if payload.QuestionType != nil {
		set.QuestionType = strings.TrimSpace(*payload.QuestionType)
	}

	if err := s.sets.Update(ctx, &set); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	return s.respond(ctx, set)
}

func (s *homeworkSetService) Get(ctx context.Context, id uint) (dto.HomeworkSetResponse, error) {
	set, err := s.loadSet(ctx, id)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	return s.respond(ctx, set)
}

func (s *homeworkSetService) List(ctx context.Context, filter repository.HomeworkSetFilter) ([]dto.HomeworkSetResponse, error) {
	sets, err := s.sets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.HomeworkSetResponse, 0, len(sets))
	for _, set := range sets {
		responses = append(responses, dto.NewHomeworkSetResponse(set, nil))
	}

	return responses, nil
}

func (s *homeworkSetService) Delete(ctx context.Context, id uint) error {
	if _, err := s.loadSet(ctx, id); err != nil {
		return err
	}

	return s.sets.Delete(ctx, id)
}

// IngestRecords replaces one role's record list. Every correct flag is parsed
// strictly here, so malformed input is rejected at the boundary instead of
// surfacing mid-evaluation.
func (s *homeworkSetService) IngestRecords(ctx context.Context, id uint, role string, payload dto.AnswerRecordsIngestRequest) (dto.HomeworkSetResponse, error) {
	ctx, span := s.tracer.Start(ctx, "homework.ingest_records", trace.WithAttributes(
		attribute.String("homework.role", role),
		attribute.Int("homework.record_count", len(payload.Records)),
	))
	defer span.End()

	if role != models.AnswerRoleBaseline && role != models.AnswerRoleAI {
		return dto.HomeworkSetResponse{}, ErrInvalidAnswerRole
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	set, err := s.loadSet(ctx, id)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	records := make([]models.AnswerRecord, 0, len(payload.Records))
	for i, item := range payload.Records {
		correct, err := textnorm.ParseCorrect(item.Correct)
		if err != nil {
			return dto.HomeworkSetResponse{}, fmt.Errorf("record %d (index %s): %w", i, item.Index, err)
		}

		records = append(records, models.AnswerRecord{
			HomeworkSetID: set.ID,
			Role:          role,
			Index:         strings.TrimSpace(item.Index),
			TempIndex:     item.TempIndex,
			UserAnswer:    item.UserAnswer,
			Correct:       fmt.Sprintf("%t", correct),
			Answer:        item.Answer,
		})
	}

	if err := s.records.ReplaceForSetAndRole(ctx, set.ID, role, records); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	counts, err := s.records.CountBySet(ctx, set.ID)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	// A set becomes ready once both the baseline and the AI sheet are present.
	if set.Status == models.HomeworkSetStatusDraft &&
		counts[models.AnswerRoleBaseline] > 0 && counts[models.AnswerRoleAI] > 0 {
		set.Status = models.HomeworkSetStatusReady
		if err := s.sets.Update(ctx, &set); err != nil {
			return dto.HomeworkSetResponse{}, err
		}
	}

	s.logger.Info().
		Uint("set_id", set.ID).
		Str("role", role).
		Int("records", len(records)).
		Msg("answer records ingested")

	return dto.NewHomeworkSetResponse(set, counts), nil
}

func (s *homeworkSetService) AttachScan(ctx context.Context, id uint, file *multipart.FileHeader) (dto.HomeworkSetResponse, error) {
	ctx, span := s.tracer.Start(ctx, "homework.attach_scan")
	defer span.End()

	if file == nil {
		return dto.HomeworkSetResponse{}, ErrScanTypeNotAllowed
	}
	if file.Size > s.maxScan {
		return dto.HomeworkSetResponse{}, ErrScanTooLarge
	}

	set, err := s.loadSet(ctx, id)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	src, err := file.Open()
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}
	if !strings.HasPrefix(detected.String(), "image/") {
		return dto.HomeworkSetResponse{}, ErrScanTypeNotAllowed
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	name := fmt.Sprintf("homework-set-%d", set.ID)
	url, err := s.storage.Upload(ctx, name, src)
	if err != nil {
		s.logger.Error().Err(err).Uint("set_id", set.ID).Msg("scan upload failed")
		return dto.HomeworkSetResponse{}, err
	}

	set.ScanURL = url
	if err := s.sets.Update(ctx, &set); err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	span.SetAttributes(attribute.String("homework.scan_mime", detected.String()))

	return s.respond(ctx, set)
}

func (s *homeworkSetService) loadSet(ctx context.Context, id uint) (models.HomeworkSet, error) {
	set, err := s.sets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.HomeworkSet{}, ErrHomeworkSetNotFound
		}
		return models.HomeworkSet{}, err
	}

	return set, nil
}

func (s *homeworkSetService) respond(ctx context.Context, set models.HomeworkSet) (dto.HomeworkSetResponse, error) {
	counts, err := s.records.CountBySet(ctx, set.ID)
	if err != nil {
		return dto.HomeworkSetResponse{}, err
	}

	return dto.NewHomeworkSetResponse(set, counts), nil
}
