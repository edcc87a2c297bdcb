package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"staffhub/backend/internal/model"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	GetByID(ctx context.Context, id string) (*model.AttendanceEvent, error)
	GetByUserDateType(ctx context.Context, userID string, date time.Time, eventType string) (*model.AttendanceEvent, error)
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.AttendanceEvent, error)
	ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.AttendanceEvent, error)
	Create(ctx context.Context, event *model.AttendanceEvent) error
	// CorrectTimestamp 在单个事务中改写事件时间并追加修正审计记录。
	// 审计表仅追加，保留 old/new 时间与批准者。
	CorrectTimestamp(ctx context.Context, event *model.AttendanceEvent, newAt time.Time, approverID, reason string) (*model.AttendanceCorrection, error)
	ListCorrectionsByEvent(ctx context.Context, eventID string) ([]model.AttendanceCorrection, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceEvent, error) {
	var event model.AttendanceEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *attendanceRepo) GetByUserDateType(ctx context.Context, userID string, date time.Time, eventType string) (*model.AttendanceEvent, error) {
	var event model.AttendanceEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_date = ? AND event_type = ?",
			userID, date.Format("2006-01-02"), eventType).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *attendanceRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_date BETWEEN ? AND ?",
			userID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("event_date ASC, event_at ASC").
		Find(&events).Error
	return events, err
}

func (r *attendanceRepo) ListByUsersAndRange(ctx context.Context, userIDs []string, from, to time.Time) ([]model.AttendanceEvent, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var events []model.AttendanceEvent
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND event_date BETWEEN ? AND ?",
			userIDs, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("user_id ASC, event_date ASC, event_at ASC").
		Find(&events).Error
	return events, err
}

func (r *attendanceRepo) Create(ctx context.Context, event *model.AttendanceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *attendanceRepo) CorrectTimestamp(ctx context.Context, event *model.AttendanceEvent, newAt time.Time, approverID, reason string) (*model.AttendanceCorrection, error) {
	correction := &model.AttendanceCorrection{
		EventID:    event.EventID,
		OldEventAt: event.EventAt,
		NewEventAt: newAt,
		ApproverID: approverID,
		Reason:     reason,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.AttendanceEvent{}).
			Where("event_id = ?", event.EventID).
			Updates(map[string]interface{}{
				"event_at":   newAt,
				"updated_by": approverID,
			}).Error; err != nil {
			return err
		}
		return tx.Create(correction).Error
	})
	if err != nil {
		return nil, err
	}
	return correction, nil
}

func (r *attendanceRepo) ListCorrectionsByEvent(ctx context.Context, eventID string) ([]model.AttendanceCorrection, error) {
	var corrections []model.AttendanceCorrection
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&corrections).Error
	return corrections, err
}
