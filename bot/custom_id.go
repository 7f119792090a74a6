package bot

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// 컴포넌트/모달 CustomID 의 첫 부분
const (
	prefixChallenge   = "challenge"
	prefixSelect      = "select"
	prefixModal       = "modal"
	prefixSubmissions = "submissions"
)

// 컴포넌트 동작
const (
	actionView        = "view"
	actionSubmit      = "submit"
	actionSubmissions = "submissions"
	actionEdit        = "edit"
	actionStatus      = "status"
	actionHide        = "hide"
	actionDelete      = "delete"
	actionCreate      = "create"
	actionUser        = "user"
)

// CustomID 컴포넌트 상호작용을 라우팅하기 위한 "prefix:action[:id]" 형식의 식별자입니다
type CustomID struct {
	Prefix string
	Action string
	ID     uint
}

func (c CustomID) String() string {
	if c.ID == 0 {
		return c.Prefix + ":" + c.Action
	}
	return fmt.Sprintf("%s:%s:%d", c.Prefix, c.Action, c.ID)
}

// ParseCustomID CustomID 문자열을 해석합니다
func ParseCustomID(raw string) (CustomID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return CustomID{}, pkgerrors.Errorf("malformed custom id %q", raw)
	}

	id := CustomID{Prefix: parts[0], Action: parts[1]}
	if len(parts) == 3 {
		n, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil || n == 0 {
			return CustomID{}, pkgerrors.Errorf("malformed id in custom id %q", raw)
		}
		id.ID = uint(n)
	}
	return id, nil
}

func challengeButtonID(action string, challengeID uint) string {
	return CustomID{Prefix: prefixChallenge, Action: action, ID: challengeID}.String()
}

func selectID(action string) string {
	return CustomID{Prefix: prefixSelect, Action: action}.String()
}

func modalID(action string, challengeID uint) string {
	return CustomID{Prefix: prefixModal, Action: action, ID: challengeID}.String()
}

func submissionsID(action string, challengeID uint) string {
	return CustomID{Prefix: prefixSubmissions, Action: action, ID: challengeID}.String()
}

// parseUintValue 선택 메뉴 값으로 전달된 ID 를 해석합니다
func parseUintValue(value string) (uint, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil || n == 0 {
		return 0, pkgerrors.Errorf("invalid id %q", value)
	}
	return uint(n), nil
}
