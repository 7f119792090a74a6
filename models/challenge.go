package models

import (
	"strings"
	"time"
)

// Challenge 주간 CTF 챌린지
type Challenge struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GuildID     string     `gorm:"column:server_id;size:32;not null;uniqueIndex:idx_challenge_server_name,priority:1" json:"guild_id"`
	Name        string     `gorm:"size:32;not null" json:"name"`
	NameKey     string     `gorm:"column:name_key;size:32;not null;uniqueIndex:idx_challenge_server_name,priority:2" json:"name_key"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Flag        string     `gorm:"size:32;not null" json:"flag"`
	Files       FileList   `gorm:"not null" json:"files"`
	URL         string     `gorm:"size:64;not null" json:"url"`
	Start       UnixMillis `gorm:"not null;index" json:"start"`
	Finish      UnixMillis `gorm:"not null;index" json:"finish"`
	Visible     bool       `gorm:"not null" json:"visible"`
}

// TableName 테이블 이름을 지정합니다
func (Challenge) TableName() string {
	return "challenge"
}

// NameKey 대소문자를 구분하지 않는 이름 비교용 키를 만듭니다
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetName 이름과 비교용 키를 함께 설정합니다
func (c *Challenge) SetName(name string) {
	c.Name = strings.TrimSpace(name)
	c.NameKey = NameKey(name)
}

// CheckFlag 제출된 플래그가 정답인지 대소문자 구분 없이 비교합니다
func (c *Challenge) CheckFlag(submitted string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(c.Flag))
}

// HasFinish 종료 시각이 설정되어 있는지 확인합니다
func (c *Challenge) HasFinish() bool {
	return c.Finish.IsSet()
}

// IsUpcoming 공개 상태이고 아직 시작 전인지 확인합니다
func (c *Challenge) IsUpcoming(now time.Time) bool {
	return c.Visible && c.Start.After(now)
}

// IsOpen 공개 상태이고 시작했으며 종료되지 않았는지 확인합니다. 종료 시각이 없으면 계속 열려있습니다
func (c *Challenge) IsOpen(now time.Time) bool {
	if !c.Visible || c.Start.After(now) {
		return false
	}
	return !c.HasFinish() || now.Before(c.Finish.Time)
}

// ChallengeUpdate 챌린지 부분 수정 내용입니다. nil 필드는 변경하지 않습니다
type ChallengeUpdate struct {
	Name        *string
	Description *string
	Flag        *string
	Files       *FileList
	URL         *string
	Start       *time.Time
	Finish      *time.Time
	Visible     *bool
}

// IsEmpty 변경할 필드가 없는지 확인합니다
func (u ChallengeUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Flag == nil && u.Files == nil &&
		u.URL == nil && u.Start == nil && u.Finish == nil && u.Visible == nil
}

// Apply 수정 내용을 챌린지에 반영합니다
func (u ChallengeUpdate) Apply(c *Challenge) {
	if u.Name != nil {
		c.SetName(*u.Name)
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Flag != nil {
		c.Flag = *u.Flag
	}
	if u.Files != nil {
		c.Files = append(FileList{}, (*u.Files)...)
	}
	if u.URL != nil {
		c.URL = *u.URL
	}
	if u.Start != nil {
		c.Start = NewUnixMillis(*u.Start)
	}
	if u.Finish != nil {
		c.Finish = NewUnixMillis(*u.Finish)
	}
	if u.Visible != nil {
		c.Visible = *u.Visible
	}
}

// Columns 수정 내용을 컬럼 이름과 저장값 맵으로 변환합니다
func (u ChallengeUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Name != nil {
		cols["name"] = strings.TrimSpace(*u.Name)
		cols["name_key"] = NameKey(*u.Name)
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Flag != nil {
		cols["flag"] = *u.Flag
	}
	if u.Files != nil {
		cols["files"] = u.Files.Encode()
	}
	if u.URL != nil {
		cols["url"] = *u.URL
	}
	if u.Start != nil {
		cols["start"] = NewUnixMillis(*u.Start).Millis()
	}
	if u.Finish != nil {
		cols["finish"] = NewUnixMillis(*u.Finish).Millis()
	}
	if u.Visible != nil {
		cols["visible"] = *u.Visible
	}
	return cols
}
