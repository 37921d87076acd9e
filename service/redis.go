package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisService 缓存检索结果，保存网格编辑会话
type RedisService struct {
	client     *redis.Client
	ttl        time.Duration
	sessionTTL time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client:     client,
		ttl:        cfg.TTL,
		sessionTTL: cfg.SessionTTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func analysisKey(imageID int64) string {
	return "analysis:" + strconv.FormatInt(imageID, 10)
}

func gridKey(imageID int64, index int) string {
	return "grid:" + strconv.FormatInt(imageID, 10) + ":" + strconv.Itoa(index)
}

// GetImageAnalysis 从缓存获取检索结果，未命中返回 nil
func (s *RedisService) GetImageAnalysis(ctx context.Context, imageID int64) (*model.ImageAnalysis, error) {
	var result model.ImageAnalysis
	ok, err := s.getJSON(ctx, analysisKey(imageID), &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

func (s *RedisService) SetImageAnalysis(ctx context.Context, imageID int64, result *model.ImageAnalysis) error {
	return s.setJSON(ctx, analysisKey(imageID), result, s.ttl)
}

// GetGridSession 获取某条记录的编辑中网格，不存在返回 nil
func (s *RedisService) GetGridSession(ctx context.Context, imageID int64, index int) (*model.GridOverlay, error) {
	var grid model.GridOverlay
	ok, err := s.getJSON(ctx, gridKey(imageID, index), &grid)
	if err != nil || !ok {
		return nil, err
	}
	return &grid, nil
}

// SetGridSession 保存编辑后的网格，每次编辑重置 TTL
func (s *RedisService) SetGridSession(ctx context.Context, imageID int64, index int, grid *model.GridOverlay) error {
	return s.setJSON(ctx, gridKey(imageID, index), grid, s.sessionTTL)
}

func (s *RedisService) DeleteGridSession(ctx context.Context, imageID int64, index int) error {
	return s.client.Del(ctx, gridKey(imageID, index)).Err()
}

func (s *RedisService) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		utils.Logger.Error("failed to unmarshal cached value",
			zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *RedisService) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
