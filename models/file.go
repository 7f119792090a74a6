package models

import (
	"database/sql/driver"
	"net/url"
	"strings"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/pkg/errors"
)

// File 챌린지에 첨부된 파일 이름과 다운로드 URL
type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileList 순서가 유지되는 첨부 파일 목록입니다.
// 저장 형식은 "이름 URL" 항목을 "^" 로 이어붙인 문자열이며, 각 값은 퍼센트 인코딩됩니다.
type FileList []File

// Encode 저장 형식 문자열로 변환합니다
func (l FileList) Encode() string {
	entries := make([]string, 0, len(l))
	for _, f := range l {
		entries = append(entries, encodeURI(f.Name)+constants.FileEntrySeparator+encodeURI(f.URL))
	}
	return strings.Join(entries, constants.FileListSeparator)
}

// DecodeFileList 저장 형식 문자열을 파일 목록으로 변환합니다. 빈 문자열은 빈 목록입니다
func DecodeFileList(encoded string) (FileList, error) {
	if encoded == "" {
		return FileList{}, nil
	}

	entries := strings.Split(encoded, constants.FileListSeparator)
	files := make(FileList, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, constants.FileEntrySeparator)
		if len(parts) != 2 {
			return nil, errors.Errorf("malformed file entry %q", entry)
		}
		name, err := url.PathUnescape(parts[0])
		if err != nil {
			return nil, errors.Wrapf(err, "file name %q", parts[0])
		}
		link, err := url.PathUnescape(parts[1])
		if err != nil {
			return nil, errors.Wrapf(err, "file url %q", parts[1])
		}
		files = append(files, File{Name: name, URL: link})
	}
	return files, nil
}

// ParseFileInput 모달 입력("<파일명> <URL>" 한 줄에 하나)을 파일 목록으로 변환합니다.
// 마지막 공백 뒤가 URL 이고 그 앞 전체가 파일명입니다.
func ParseFileInput(text string) (FileList, error) {
	files := FileList{}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndexAny(line, " \t")
		if idx == -1 {
			return nil, errors.Errorf("line %d: expected \"<filename> <URL>\"", i+1)
		}
		name := strings.TrimSpace(line[:idx])
		link := strings.TrimSpace(line[idx+1:])
		if name == "" || link == "" {
			return nil, errors.Errorf("line %d: expected \"<filename> <URL>\"", i+1)
		}
		files = append(files, File{Name: name, URL: link})
	}
	return files, nil
}

// FormatFileInput ParseFileInput 의 역변환으로, 수정 모달의 기본값에 사용됩니다
func (l FileList) FormatFileInput() string {
	lines := make([]string, 0, len(l))
	for _, f := range l {
		lines = append(lines, f.Name+" "+f.URL)
	}
	return strings.Join(lines, "\n")
}

// GormDataType 컬럼 타입을 text 로 고정합니다
func (FileList) GormDataType() string {
	return "text"
}

func (l FileList) Value() (driver.Value, error) {
	return l.Encode(), nil
}

func (l *FileList) Scan(src interface{}) error {
	var encoded string
	switch v := src.(type) {
	case nil:
		encoded = ""
	case string:
		encoded = v
	case []byte:
		encoded = string(v)
	default:
		return errors.Errorf("filelist: cannot scan %T", src)
	}

	files, err := DecodeFileList(encoded)
	if err != nil {
		return err
	}
	*l = files
	return nil
}

// encodeURI 영숫자와 URISafeCharacters 를 제외한 모든 바이트를 %XX 로 인코딩합니다.
// JavaScript encodeURI 와 같은 결과입니다.
func encodeURI(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(constants.URISafeCharacters, c) != -1
}
