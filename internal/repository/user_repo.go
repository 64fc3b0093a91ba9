package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

// UserInfo — профиль из входящего сообщения мессенджера.
type UserInfo struct {
	Username  *string
	FirstName *string
	LastName  *string
}

type UserStats struct {
	Total   int64
	Today   int64
	Week    int64
	Blocked int64
}

type UserRepo interface {
	GetOrCreate(ctx context.Context, chatID int64, info UserInfo) (*models.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	SetBlocked(ctx context.Context, id uint, blocked bool) error
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context, now time.Time) (UserStats, error)
	HardDelete(ctx context.Context, id uint) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo { return &userRepo{db: db} }

func (r *userRepo) GetOrCreate(ctx context.Context, chatID int64, info UserInfo) (*models.User, error) {
	u, err := r.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &models.User{
		ChatID:    chatID,
		Username:  info.Username,
		FirstName: info.FirstName,
		LastName:  info.LastName,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *userRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepo) SetBlocked(ctx context.Context, id uint, blocked bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_blocked", blocked).Error
}

func (r *userRepo) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin).Error
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var list []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&cnt).Error
	return cnt, err
}

func (r *userRepo) Stats(ctx context.Context, now time.Time) (UserStats, error) {
	var s UserStats
	db := r.db.WithContext(ctx).Model(&models.User{})

	if err := db.Session(&gorm.Session{}).Count(&s.Total).Error; err != nil {
		return s, err
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", dayStart).Count(&s.Today).Error; err != nil {
		return s, err
	}
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&s.Week).Error; err != nil {
		return s, err
	}
	if err := db.Session(&gorm.Session{}).Where("is_blocked = ?", true).Count(&s.Blocked).Error; err != nil {
		return s, err
	}
	return s, nil
}

func (r *userRepo) HardDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}
