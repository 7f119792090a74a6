package models

import "fmt"

// Server 길드별 봇 설정입니다. 빈 문자열은 설정되지 않은 값입니다
type Server struct {
	GuildID               string `gorm:"column:id;primaryKey;size:32" json:"id"`
	AuthorRoleID          string `gorm:"column:author_role;size:32;not null" json:"author_role"`
	PingRoleID            string `gorm:"column:ping_role;size:32;not null" json:"ping_role"`
	AnnouncementChannelID string `gorm:"column:announcement_channel;size:32;not null" json:"announcement_channel"`
	SolveChannelID        string `gorm:"column:solve_channel;size:32;not null" json:"solve_channel"`
}

// TableName 테이블 이름을 지정합니다
func (Server) TableName() string {
	return "server"
}

// PingMention 공지에 붙일 멘션을 반환합니다. 역할이 없으면 @everyone 입니다
func (s *Server) PingMention() string {
	if s.PingRoleID == "" {
		return "@everyone"
	}
	return fmt.Sprintf("<@&%s>", s.PingRoleID)
}

// ServerUpdate 길드 설정 부분 수정 내용입니다
type ServerUpdate struct {
	AuthorRoleID          *string
	PingRoleID            *string
	AnnouncementChannelID *string
	SolveChannelID        *string
}

// Apply 수정 내용을 설정에 반영합니다
func (u ServerUpdate) Apply(s *Server) {
	if u.AuthorRoleID != nil {
		s.AuthorRoleID = *u.AuthorRoleID
	}
	if u.PingRoleID != nil {
		s.PingRoleID = *u.PingRoleID
	}
	if u.AnnouncementChannelID != nil {
		s.AnnouncementChannelID = *u.AnnouncementChannelID
	}
	if u.SolveChannelID != nil {
		s.SolveChannelID = *u.SolveChannelID
	}
}
