package validator

import (
	"testing"
)

func TestDetectExecutable(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		wantExec bool
	}{
		{"Windows PE头", []byte{0x4D, 0x5A, 0x90, 0x00}, true},
		{"ELF头", []byte{0x7F, 'E', 'L', 'F', 0x02}, true},
		{"Mach-O 64位", []byte{0xFE, 0xED, 0xFA, 0xCF}, true},
		{"Mach-O 小端", []byte{0xCF, 0xFA, 0xED, 0xFE}, true},
		{"Mach-O 通用二进制", []byte{0xCA, 0xFE, 0xBA, 0xBE}, true},
		{"shebang脚本", []byte("#!/bin/sh\n"), true},
		{"PNG不是可执行", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, false},
		{"空内容不是可执行", nil, false},
		{"纯文本不是可执行", []byte("hello world"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := detectExecutable(tt.head)
			if got != tt.wantExec {
				t.Errorf("detectExecutable(%v) = %v, want %v", tt.head, got, tt.wantExec)
			}
		})
	}
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		expected string
	}{
		{"PNG", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"GIF", []byte("GIF89a"), "image/gif"},
		{"WebP", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), "image/webp"},
		{"PDF", []byte("%PDF-1.7"), "application/pdf"},
		{"ZIP", []byte("PK\x03\x04"), "application/zip"},
		{"空ZIP", []byte("PK\x05\x06"), "application/zip"},
		{"MP4", []byte("\x00\x00\x00\x20ftypisom"), "video/mp4"},
		{"TIFF小端", []byte("II*\x00"), "image/tiff"},
		{"TIFF大端", []byte("MM\x00*"), "image/tiff"},
		{"PSD", []byte("8BPS\x00\x01"), "image/vnd.adobe.photoshop"},
		{"PostScript", []byte("%!PS-Adobe"), "application/postscript"},
		{"未知格式", []byte("random bytes"), ""},
		{"太短无法识别", []byte{0x89}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFamily(tt.head)
			if got != tt.expected {
				t.Errorf("detectFamily(%v) = %q, want %q", tt.head, got, tt.expected)
			}
		})
	}
}

func TestCheckContent(t *testing.T) {
	svc := newTestService()

	t.Run("可执行内容冒充图片被拒绝", func(t *testing.T) {
		result := svc.CheckMeta("innocent.png", "image/png", 1024)
		svc.CheckContent(result, "image/png", []byte{0x4D, 0x5A, 0x90, 0x00, 0x03})
		if result.Verdict != VerdictReject {
			t.Errorf("PE内容冒充PNG应被拒绝，实际判定 %s", result.Verdict)
		}
		if !hasReason(result.Errors, ReasonExecutableContent) {
			t.Errorf("应报告 EXECUTABLE_CONTENT，实际 %v", result.Errors)
		}
	})

	t.Run("ELF内容冒充视频被拒绝", func(t *testing.T) {
		result := svc.CheckMeta("movie.mp4", "video/mp4", 1024)
		svc.CheckContent(result, "video/mp4", []byte{0x7F, 'E', 'L', 'F', 0x02, 0x01})
		if result.Verdict != VerdictReject {
			t.Errorf("ELF内容冒充MP4应被拒绝，实际判定 %s", result.Verdict)
		}
	})

	t.Run("内容与声明一致直接接受", func(t *testing.T) {
		result := svc.CheckMeta("photo.png", "image/png", 1024)
		svc.CheckContent(result, "image/png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
		if result.Verdict != VerdictAccept {
			t.Errorf("一致的PNG应被接受，实际判定 %s (warnings=%v)", result.Verdict, result.Warnings)
		}
	})

	t.Run("家族不一致给出警告", func(t *testing.T) {
		result := svc.CheckMeta("photo.png", "image/png", 1024)
		svc.CheckContent(result, "image/png", []byte{0xFF, 0xD8, 0xFF, 0xE1})
		if result.Verdict != VerdictAcceptWithWarnings {
			t.Errorf("JPEG内容声明为PNG应带警告接受，实际判定 %s", result.Verdict)
		}
		if !hasReason(result.Warnings, ReasonContentMismatch) {
			t.Errorf("应报告 CONTENT_TYPE_MISMATCH，实际 %v", result.Warnings)
		}
	})

	t.Run("OOXML声明不与ZIP容器冲突", func(t *testing.T) {
		result := svc.CheckMeta("report.zip", "application/zip", 1024)
		svc.CheckContent(result, "application/zip", []byte("PK\x03\x04\x14\x00"))
		if result.Verdict != VerdictAccept {
			t.Errorf("ZIP内容声明为ZIP应被接受，实际判定 %s", result.Verdict)
		}
	})

	t.Run("无法识别的内容不做否定推断", func(t *testing.T) {
		result := svc.CheckMeta("notes.pdf", "application/pdf", 1024)
		svc.CheckContent(result, "application/pdf", []byte("just some text"))
		if result.Verdict != VerdictAccept {
			t.Errorf("未识别内容不应产生警告，实际判定 %s (warnings=%v)", result.Verdict, result.Warnings)
		}
	})
}
