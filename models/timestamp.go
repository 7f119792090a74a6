package models

import (
	"database/sql/driver"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// UnixMillis 는 밀리초 단위 유닉스 시간(bigint)으로 저장되는 UTC 시각입니다.
// 저장값 0 은 "설정되지 않음"을 뜻하며 time.Time 의 zero 값과 대응합니다.
type UnixMillis struct {
	time.Time
}

// NewUnixMillis 밀리초 정밀도로 잘라낸 UTC 시각을 만듭니다
func NewUnixMillis(t time.Time) UnixMillis {
	if t.IsZero() {
		return UnixMillis{}
	}
	return UnixMillis{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

// FromMillis 저장된 밀리초 값으로부터 시각을 복원합니다
func FromMillis(ms int64) UnixMillis {
	if ms == 0 {
		return UnixMillis{}
	}
	return UnixMillis{Time: time.UnixMilli(ms).UTC()}
}

// IsSet 값이 설정되어 있는지 확인합니다
func (m UnixMillis) IsSet() bool {
	return !m.Time.IsZero()
}

// Millis 저장용 밀리초 값을 반환합니다
func (m UnixMillis) Millis() int64 {
	if !m.IsSet() {
		return 0
	}
	return m.Time.UnixMilli()
}

// GormDataType 컬럼 타입을 bigint 로 고정합니다
func (UnixMillis) GormDataType() string {
	return "bigint"
}

func (m UnixMillis) Value() (driver.Value, error) {
	return m.Millis(), nil
}

func (m *UnixMillis) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = UnixMillis{}
	case int64:
		*m = FromMillis(v)
	case int32:
		*m = FromMillis(int64(v))
	case int:
		*m = FromMillis(int64(v))
	case float64:
		*m = FromMillis(int64(v))
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return errors.Errorf("unixmillis: cannot scan %T", src)
	}
	return nil
}

func (m *UnixMillis) scanString(s string) error {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.Wrap(err, "unixmillis")
	}
	*m = FromMillis(ms)
	return nil
}
