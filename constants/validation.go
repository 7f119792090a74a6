package constants

// 검증 관련 상수
const (
	// 제어 문자 관련
	ControlCharTab = 9
	ControlCharLF  = 10
	ControlCharCR  = 13
	ControlCharMin = 32

	// 파일 목록 인코딩
	FileListSeparator  = "^"
	FileEntrySeparator = " "

	// 퍼센트 인코딩에서 그대로 두는 문자
	URISafeCharacters = "-_.!~*'();/?:@&=+$,#"
)
