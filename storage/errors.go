package storage

import "errors"

var (
	// ErrNotFound 요청한 레코드가 없습니다
	ErrNotFound = errors.New("not found")
	// ErrDuplicate 고유 제약 조건을 위반했습니다
	ErrDuplicate = errors.New("duplicate")
)
