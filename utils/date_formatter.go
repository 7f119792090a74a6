package utils

import (
	"fmt"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
)

// Discord 타임스탬프 표시 형식
const (
	TimestampShortDateTime = "f"
	TimestampLongDateTime  = "F"
	TimestampLongTime      = "T"
	TimestampSeconds       = "s"
	TimestampRelative      = "R"
)

// FormatDateTime 날짜와 시간을 포맷팅합니다
func FormatDateTime(dateTime time.Time) string {
	return dateTime.Format(constants.DateTimeFormat)
}

// DiscordTimestamp 클라이언트 시간대로 표시되는 <t:unix:style> 마크업을 만듭니다
func DiscordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// FormatUptime 가동 시간을 "1d 2h 3m 4s" 형태로 표시합니다
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
