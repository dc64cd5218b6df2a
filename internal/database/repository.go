package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jiqing426/video-ai/internal/llm"
)

var ErrNotFound = errors.New("запись не найдена")

type RecordingRepository struct {
	db *gorm.DB
}

var _ llm.Logger = (*RecordingRepository)(nil)

func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// CreateRecording сохраняет запись вместе с шагами в одной транзакции.
func (r *RecordingRepository) CreateRecording(ctx context.Context, rec *Recording) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

func (r *RecordingRepository) GetRecordingByID(ctx context.Context, id string) (*Recording, error) {
	var rec Recording
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_no ASC") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecordings возвращает записи без шагов, новые первыми.
func (r *RecordingRepository) ListRecordings(ctx context.Context, limit, offset int) ([]Recording, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var recs []Recording
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *RecordingRepository) ListSteps(ctx context.Context, recordingID string) ([]RecordingStep, error) {
	var steps []RecordingStep
	if err := r.db.WithContext(ctx).Where("recording_id = ?", recordingID).Order("step_no ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *RecordingRepository) LogLLMRequest(ctx context.Context, sessionID, role, promptText, responseText, model string, tokensUsed int) error {
	return r.db.WithContext(ctx).Create(&LlmLog{
		SessionID:    sessionID,
		Role:         role,
		PromptText:   promptText,
		ResponseText: responseText,
		Model:        model,
		TokensUsed:   tokensUsed,
	}).Error
}

func (r *RecordingRepository) ListLLMLogs(ctx context.Context, sessionID string) ([]LlmLog, error) {
	var logs []LlmLog
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
