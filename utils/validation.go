package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/pkg/errors"
)

// IsValidChallengeName 챌린지 이름 길이를 검사합니다
func IsValidChallengeName(name string) bool {
	return lengthBetween(strings.TrimSpace(name), constants.MinNameLength, constants.MaxNameLength)
}

// IsValidFlag 플래그 길이를 검사합니다
func IsValidFlag(flag string) bool {
	return lengthBetween(strings.TrimSpace(flag), constants.MinFlagLength, constants.MaxFlagLength)
}

// IsValidConnectionURL 접속 URL 길이를 검사합니다. 빈 값은 허용됩니다
func IsValidConnectionURL(url string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(url)) <= constants.MaxURLLength
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

// ParseUnixTimestamp 유닉스 초 단위 문자열을 UTC 시간으로 변환합니다. 소수점 이하도 허용합니다
func ParseUnixTimestamp(value, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.Errorf("%s timestamp is empty", fieldName)
	}

	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}, errors.Errorf("%s timestamp %q is not a unix timestamp", fieldName, value)
	}
	// int64 밀리초 범위를 벗어나는 값은 거부
	if math.Abs(seconds) > float64(math.MaxInt64/1000) {
		return time.Time{}, errors.Errorf("%s timestamp %q is out of range", fieldName, value)
	}

	return time.UnixMilli(int64(math.Round(seconds * 1000))).UTC(), nil
}

// ParseYesNo "yes"/"no" 와 strconv.ParseBool 이 허용하는 값을 불리언으로 변환합니다
func ParseYesNo(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

// TruncateString 문자열 처리
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(constants.TruncateIndicator) {
		return constants.TruncateIndicator[:maxLen]
	}
	cut := maxLen - len(constants.TruncateIndicator)
	// 멀티바이트 문자 중간에서 자르지 않도록 조정
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + constants.TruncateIndicator
}

// TruncateRunes 문자 단위로 최대 maxRunes 글자까지 자릅니다. 표시는 덧붙이지 않습니다
func TruncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}

// SanitizeString 표시용 문자열에서 멘션과 제어 문자를 제거합니다
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "@everyone", "(at)everyone")
	s = strings.ReplaceAll(s, "@here", "(at)here")
	s = strings.ReplaceAll(s, "<@", "(at)")
	s = strings.ReplaceAll(s, "<#", "(channel)")

	var cleaned strings.Builder
	for _, r := range s {
		if r >= constants.ControlCharMin || r == constants.ControlCharLF || r == constants.ControlCharTab {
			cleaned.WriteRune(r)
		}
	}

	return strings.TrimSpace(cleaned.String())
}
