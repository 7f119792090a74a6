package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestIsValidChallengeName(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
		desc     string
	}{
		{"Web 101", true, "simple name"},
		{"abc", true, "minimum length"},
		{strings.Repeat("a", 32), true, "maximum length"},
		{"ab", false, "too short"},
		{strings.Repeat("a", 33), false, "too long"},
		{"   ", false, "blank"},
		{"  ab  ", false, "short after trim"},
	}

	for _, test := range tests {
		if result := IsValidChallengeName(test.input); result != test.expected {
			t.Errorf("IsValidChallengeName(%q) = %v, 예상값 %v (%s)", test.input, result, test.expected, test.desc)
		}
	}
}

func TestIsValidFlag(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"ok", true},
		{"flag{weekly}", true},
		{"x", false},
		{strings.Repeat("f", 33), false},
	}

	for _, test := range tests {
		if result := IsValidFlag(test.input); result != test.expected {
			t.Errorf("IsValidFlag(%q) = %v, 예상값 %v", test.input, result, test.expected)
		}
	}
}

func TestIsValidConnectionURL(t *testing.T) {
	if !IsValidConnectionURL("") {
		t.Error("빈 URL은 허용되어야 합니다")
	}
	if !IsValidConnectionURL("nc ctf.example.com 1337") {
		t.Error("짧은 접속 명령은 허용되어야 합니다")
	}
	if IsValidConnectionURL("https://" + strings.Repeat("x", 64)) {
		t.Error("64자를 넘는 URL은 거부되어야 합니다")
	}
}

func TestParseUnixTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"1700000000", time.Unix(1700000000, 0).UTC(), false},
		{" 1700000000.5 ", time.UnixMilli(1700000000500).UTC(), false},
		{"0", time.Unix(0, 0).UTC(), false},
		{"", time.Time{}, true},
		{"tomorrow", time.Time{}, true},
		{"NaN", time.Time{}, true},
		{"Inf", time.Time{}, true},
		{"1e300", time.Time{}, true},
	}

	for _, test := range tests {
		got, err := ParseUnixTimestamp(test.input, "finish")
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseUnixTimestamp(%q) 에러가 발생해야 합니다", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUnixTimestamp(%q) 예상치 못한 에러: %v", test.input, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("ParseUnixTimestamp(%q) = %v, 예상값 %v", test.input, got, test.want)
		}
	}
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"yes", true, false},
		{"No", false, false},
		{"", false, false},
		{"true", true, false},
		{"0", false, false},
		{"maybe", false, true},
	}

	for _, test := range tests {
		got, err := ParseYesNo(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseYesNo(%q) err = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseYesNo(%q) = %v, 예상값 %v", test.input, got, test.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, ".."},
	}

	for _, test := range tests {
		if got := TruncateString(test.input, test.maxLen); got != test.want {
			t.Errorf("TruncateString(%q, %d) = %q, 예상값 %q", test.input, test.maxLen, got, test.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input    string
		maxRunes int
		want     string
	}{
		{"short", 10, "short"},
		{"flag{abc}", 4, "flag"},
		{"a한글입니다", 3, "a한글"},
		{"한", 1, "한"},
	}

	for _, test := range tests {
		got := TruncateRunes(test.input, test.maxRunes)
		if got != test.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, 예상값 %q", test.input, test.maxRunes, got, test.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("TruncateRunes(%q, %d) 결과가 올바른 UTF-8 이 아닙니다", test.input, test.maxRunes)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("  hi @everyone <@123>\x00 ")
	if strings.Contains(got, "@everyone") || strings.Contains(got, "<@") || strings.Contains(got, "\x00") {
		t.Errorf("SanitizeString 결과에 멘션이나 제어 문자가 남아있습니다: %q", got)
	}
}
