package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// 일시적 오류 재시도 관련 상수
const (
	maxRetryAttempts = 3
	retryDelay       = 100 * time.Millisecond
)

// GormStorage gorm 으로 sqlite, postgres, mysql 을 지원하는 저장소입니다
type GormStorage struct {
	db      *gorm.DB
	dialect config.Dialect
	now     func() time.Time
}

// Open DATABASE_URL 에 맞는 드라이버로 연결하고 커넥션 풀을 설정합니다
func Open(ctx context.Context, cfg config.DatabaseConfig) (*GormStorage, error) {
	dialect, err := config.DatabaseDialect(cfg.URL)
	if err != nil {
		return nil, err
	}

	utils.Info("Opening %s database", dialect)
	db, err := gorm.Open(dialector(dialect, cfg.URL), &gorm.Config{
		Logger:         logger.New(gormLogWriter{}, logger.Config{SlowThreshold: 500 * time.Millisecond, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true}),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	configurePool(sqlDB, dialect, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, constants.DBPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := &GormStorage{db: db, dialect: dialect, now: time.Now}
	if cfg.AutoMigrate {
		if err := s.AutoMigrate(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	utils.Info("Database connection established")
	return s, nil
}

func dialector(dialect config.Dialect, url string) gorm.Dialector {
	switch dialect {
	case config.DialectPostgres:
		return postgres.Open(url)
	case config.DialectMySQL:
		return mysql.Open(strings.TrimPrefix(url, "mysql://"))
	default:
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://"))
	}
}

func configurePool(sqlDB *sql.DB, dialect config.Dialect, cfg config.DatabaseConfig) {
	// sqlite 는 쓰기 잠금이 파일 단위라 연결 하나로 직렬화합니다
	if dialect == config.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)
}

// AutoMigrate 모델 정의로 테이블과 인덱스를 생성합니다
func (s *GormStorage) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.Challenge{}, &models.Submission{}, &models.Server{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// executeWithRetry 연결 끊김이나 sqlite 잠금 같은 일시적 오류일 때 작업을 재시도합니다
func (s *GormStorage) executeWithRetry(ctx context.Context, operation func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err = operation(s.db.WithContext(ctx))
		if err == nil || !isTransientError(err) {
			return err
		}
		utils.Warn("Transient database error (attempt %d/%d): %v", attempt, maxRetryAttempts, err)
		select {
		case <-time.After(retryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// isTransientError 재시도로 해결될 수 있는 오류인지 확인합니다
func isTransientError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"database is locked", "connection reset", "connection refused", "broken pipe", "bad connection"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	}
	return errors.Wrap(err, op)
}

// isUniqueViolation 드라이버가 번역하지 못한 고유 제약 위반 메시지를 판별합니다
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}

// GetChallenge ID로 챌린지를 조회합니다
func (s *GormStorage) GetChallenge(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.First(&challenge, id).Error
	})
	if err != nil {
		return nil, translate(err, "get challenge")
	}
	return &challenge, nil
}

// SearchChallenge 길드 안에서 이름으로 챌린지를 찾습니다
func (s *GormStorage) SearchChallenge(ctx context.Context, guildID, name string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("server_id = ? AND name_key = ?", guildID, models.NameKey(name)).First(&challenge).Error
	})
	if err != nil {
		return nil, translate(err, "search challenge")
	}
	return &challenge, nil
}

// ListActiveChallenges 진행 중인 공개 챌린지를 시작 시각 순으로 반환합니다
func (s *GormStorage) ListActiveChallenges(ctx context.Context, guildID string) ([]models.Challenge, error) {
	now := s.now().UnixMilli()
	var challenges []models.Challenge
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		q := tx.Where("visible = ? AND start <= ? AND (finish = 0 OR finish > ?)", true, now, now)
		if guildID != "" {
			q = q.Where("server_id = ?", guildID)
		}
		return q.Order("start ASC, id ASC").Find(&challenges).Error
	})
	if err != nil {
		return nil, translate(err, "list active challenges")
	}
	return challenges, nil
}

// ListUpcomingChallenges 시작 전인 공개 챌린지를 모든 길드에서 반환합니다
func (s *GormStorage) ListUpcomingChallenges(ctx context.Context) ([]models.Challenge, error) {
	now := s.now().UnixMilli()
	var challenges []models.Challenge
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("visible = ? AND start > ?", true, now).Order("start ASC, id ASC").Find(&challenges).Error
	})
	if err != nil {
		return nil, translate(err, "list upcoming challenges")
	}
	return challenges, nil
}

// AddChallenge 챌린지를 저장하고 ID를 채웁니다
func (s *GormStorage) AddChallenge(ctx context.Context, challenge *models.Challenge) error {
	challenge.NameKey = models.NameKey(challenge.Name)
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Create(challenge).Error
	})
	return translate(err, "add challenge")
}

// UpdateChallenge 변경된 필드만 저장하고 갱신된 챌린지를 반환합니다
func (s *GormStorage) UpdateChallenge(ctx context.Context, id uint, update models.ChallengeUpdate) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&challenge, id).Error; err != nil {
				return err
			}
			if update.IsEmpty() {
				return nil
			}
			if err := tx.Model(&models.Challenge{}).Where("id = ?", id).Updates(update.Columns()).Error; err != nil {
				return err
			}
			update.Apply(&challenge)
			return nil
		})
	})
	if err != nil {
		return nil, translate(err, "update challenge")
	}
	return &challenge, nil
}

// DeleteChallenge 챌린지를 삭제합니다. 제출 기록은 남겨둡니다
func (s *GormStorage) DeleteChallenge(ctx context.Context, id uint) error {
	var affected int64
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(&models.Challenge{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translate(err, "delete challenge")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubmission ID로 제출 기록을 조회합니다
func (s *GormStorage) GetSubmission(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.First(&submission, id).Error
	})
	if err != nil {
		return nil, translate(err, "get submission")
	}
	return &submission, nil
}

// GetSubmissions 제출 기록을 제출 시각, ID 순으로 반환합니다
func (s *GormStorage) GetSubmissions(ctx context.Context, challengeID uint, userID string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		q := tx.Where("challenge_id = ?", challengeID)
		if userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		return q.Order("submitted_at ASC, id ASC").Find(&submissions).Error
	})
	if err != nil {
		return nil, translate(err, "get submissions")
	}
	return submissions, nil
}

// GetSolve 사용자의 첫 정답 제출을 반환합니다
func (s *GormStorage) GetSolve(ctx context.Context, challengeID uint, userID string) (*models.Submission, error) {
	var submission models.Submission
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("challenge_id = ? AND user_id = ? AND correct = ?", challengeID, userID, true).
			Order("submitted_at ASC, id ASC").First(&submission).Error
	})
	if err != nil {
		return nil, translate(err, "get solve")
	}
	return &submission, nil
}

// AddSubmission 제출 기록을 저장하고 ID를 채웁니다
func (s *GormStorage) AddSubmission(ctx context.Context, submission *models.Submission) error {
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Create(submission).Error
	})
	return translate(err, "add submission")
}

// DeleteSubmission 제출 기록을 삭제합니다
func (s *GormStorage) DeleteSubmission(ctx context.Context, id uint) error {
	var affected int64
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(&models.Submission{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translate(err, "delete submission")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetServer 길드 설정을 반환합니다. 저장된 설정이 없으면 기본값입니다
func (s *GormStorage) GetServer(ctx context.Context, guildID string) (*models.Server, error) {
	var server models.Server
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.First(&server, "id = ?", guildID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Server{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, translate(err, "get server")
	}
	return &server, nil
}

// UpdateServer 길드 설정을 갱신하거나 새로 저장합니다
func (s *GormStorage) UpdateServer(ctx context.Context, guildID string, update models.ServerUpdate) (*models.Server, error) {
	var server models.Server
	err := s.executeWithRetry(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			server = models.Server{GuildID: guildID}
			if err := tx.First(&server, "id = ?", guildID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			update.Apply(&server)
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&server).Error
		})
	})
	if err != nil {
		return nil, translate(err, "update server")
	}
	return &server, nil
}

// Ping 데이터베이스 연결을 확인합니다
func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 커넥션 풀을 닫습니다
func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogWriter gorm 로그를 애플리케이션 로거로 보냅니다
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	utils.Warn(strings.TrimSpace(format), args...)
}
