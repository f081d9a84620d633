package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

func newTestService() *Service {
	return NewServiceWithRules(10, constant.DefaultAllowedExtensions, constant.DefaultAllowedMIMEPrefixes, 4)
}

func hasReason(reasons []model.ValidateReason, code string) bool {
	for _, r := range reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		wantChanged bool
	}{
		{
			name:        "普通文件名保持不变",
			input:       "brief.pdf",
			expected:    "brief.pdf",
			wantChanged: false,
		},
		{
			name:        "Unix路径只保留最后一段",
			input:       "../../etc/passwd.png",
			expected:    "passwd.png",
			wantChanged: true,
		},
		{
			name:        "Windows路径只保留最后一段",
			input:       `C:\Users\evil\病毒.jpg`,
			expected:    "病毒.jpg",
			wantChanged: true,
		},
		{
			name:        "控制字符被移除",
			input:       "he\x00llo\x1f.png",
			expected:    "hello.png",
			wantChanged: true,
		},
		{
			name:        "保留字符被移除",
			input:       `a<b>c:d"e|f?g*.gif`,
			expected:    "abcdefg.gif",
			wantChanged: true,
		},
		{
			name:        "首尾的点和空格被去掉",
			input:       " ..hidden.png. ",
			expected:    "hidden.png",
			wantChanged: true,
		},
		{
			name:        "纯目录名退化为unnamed",
			input:       "..",
			expected:    "unnamed",
			wantChanged: true,
		},
		{
			name:        "空字符串退化为unnamed",
			input:       "",
			expected:    "unnamed",
			wantChanged: true,
		},
		{
			name:        "中文文件名原样保留",
			input:       "三月刊封面.psd",
			expected:    "三月刊封面.psd",
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if changed != tt.wantChanged {
				t.Errorf("SanitizeFilename(%q) changed = %v, want %v", tt.input, changed, tt.wantChanged)
			}
		})
	}

	t.Run("超长文件名截断但保留扩展名", func(t *testing.T) {
		input := strings.Repeat("长", 300) + ".jpeg"
		got, changed := SanitizeFilename(input)
		if !changed {
			t.Error("超长文件名应该被标记为已清洗")
		}
		if !strings.HasSuffix(got, ".jpeg") {
			t.Errorf("截断后应保留扩展名，得到 %q", got)
		}
		if len([]rune(got)) > 200 {
			t.Errorf("截断后长度应不超过200个字符，实际 %d", len([]rune(got)))
		}
	})
}

func TestCheckMeta(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		wantVerdict string
		wantError   string
		wantWarning string
	}{
		{
			name:        "合规的PDF被接受",
			filename:    "brief.pdf",
			contentType: "application/pdf",
			size:        2 * 1024 * 1024,
			wantVerdict: VerdictAccept,
		},
		{
			name:        "大小为零被拒绝",
			filename:    "empty.png",
			contentType: "image/png",
			size:        0,
			wantVerdict: VerdictReject,
			wantError:   ReasonSizeInvalid,
		},
		{
			name:        "负数大小被拒绝",
			filename:    "negative.png",
			contentType: "image/png",
			size:        -1,
			wantVerdict: VerdictReject,
			wantError:   ReasonSizeInvalid,
		},
		{
			name:        "超过上限被拒绝",
			filename:    "huge.mp4",
			contentType: "video/mp4",
			size:        11 * 1024 * 1024,
			wantVerdict: VerdictReject,
			wantError:   ReasonSizeExceeded,
		},
		{
			name:        "扩展名和媒体类型都不在列表内被拒绝",
			filename:    "payload.exe",
			contentType: "application/x-msdownload",
			size:        100,
			wantVerdict: VerdictReject,
			wantError:   ReasonExtensionNotAllowed,
		},
		{
			name:        "扩展名不在列表但媒体类型命中时带警告放行",
			filename:    "report.doc",
			contentType: "application/pdf",
			size:        1024,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonExtensionNotAllowed,
		},
		{
			name:        "媒体类型不在列表但扩展名命中时带警告放行",
			filename:    "page.zip",
			contentType: "text/html",
			size:        100,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonMIMENotAllowed,
		},
		{
			name:        "没有扩展名但媒体类型命中时带警告放行",
			filename:    "noext",
			contentType: "image/png",
			size:        100,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonExtensionNotAllowed,
		},
		{
			name:        "双方都命中但大类矛盾时带警告放行",
			filename:    "photo.png",
			contentType: "application/pdf",
			size:        100,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonContentMismatch,
		},
		{
			name:        "媒体类型参数不影响匹配",
			filename:    "photo.jpg",
			contentType: "IMAGE/JPEG; charset=binary",
			size:        100,
			wantVerdict: VerdictAccept,
		},
		{
			name:        "宽泛类型带警告接受",
			filename:    "bundle.zip",
			contentType: "application/octet-stream",
			size:        100,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonGenericMIME,
		},
		{
			name:        "路径文件名带警告接受",
			filename:    "../logo.png",
			contentType: "image/png",
			size:        100,
			wantVerdict: VerdictAcceptWithWarnings,
			wantWarning: ReasonFilenameSanitized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.CheckMeta(tt.filename, tt.contentType, tt.size)
			if result.Verdict != tt.wantVerdict {
				t.Errorf("判定值 = %s, want %s (errors=%v warnings=%v)", result.Verdict, tt.wantVerdict, result.Errors, result.Warnings)
			}
			if tt.wantError != "" && !hasReason(result.Errors, tt.wantError) {
				t.Errorf("期望错误原因 %s，实际 %v", tt.wantError, result.Errors)
			}
			if tt.wantWarning != "" && !hasReason(result.Warnings, tt.wantWarning) {
				t.Errorf("期望警告原因 %s，实际 %v", tt.wantWarning, result.Warnings)
			}
		})
	}

	t.Run("多个问题同时报告", func(t *testing.T) {
		result := svc.CheckMeta("x.exe", "text/html", 0)
		if len(result.Errors) < 3 {
			t.Errorf("应同时报告大小、扩展名、媒体类型三类错误，实际 %v", result.Errors)
		}
		if result.Verdict != VerdictReject {
			t.Errorf("判定值应为 REJECT，实际 %s", result.Verdict)
		}
	})

	t.Run("双方都不命中时同时给出两个拒绝原因", func(t *testing.T) {
		result := svc.CheckMeta("payload.exe", "application/x-msdownload", 100)
		if result.Verdict != VerdictReject {
			t.Fatalf("判定值应为 REJECT，实际 %s", result.Verdict)
		}
		if !hasReason(result.Errors, ReasonExtensionNotAllowed) || !hasReason(result.Errors, ReasonMIMENotAllowed) {
			t.Errorf("应同时报告扩展名和媒体类型错误，实际 %v", result.Errors)
		}
	})

	t.Run("空允许列表不做白名单限制", func(t *testing.T) {
		open := NewServiceWithRules(10, "", "", 4)
		result := open.CheckMeta("anything.xyz", "application/x-custom", 1024)
		if result.Verdict != VerdictAccept {
			t.Errorf("空列表下任意扩展名与类型都应被接受，实际 %s (errors=%v warnings=%v)",
				result.Verdict, result.Errors, result.Warnings)
		}
	})
}

func TestValidateBatch(t *testing.T) {
	svc := newTestService()

	t.Run("空批次返回批级错误", func(t *testing.T) {
		_, err := svc.ValidateBatch(&model.ValidateBatchRequest{})
		if !errors.Is(err, constant.ErrBadRequest) {
			t.Errorf("空批次应返回 ErrBadRequest，实际 %v", err)
		}
	})

	t.Run("数量超限返回批级错误", func(t *testing.T) {
		files := make([]model.ValidateCandidate, 5)
		for i := range files {
			files[i] = model.ValidateCandidate{Filename: "a.png", ContentType: "image/png", Size: 1}
		}
		_, err := svc.ValidateBatch(&model.ValidateBatchRequest{Files: files})
		if !errors.Is(err, constant.ErrBadRequest) {
			t.Errorf("超限批次应返回 ErrBadRequest，实际 %v", err)
		}
	})

	t.Run("逐个给出结论互不影响", func(t *testing.T) {
		resp, err := svc.ValidateBatch(&model.ValidateBatchRequest{Files: []model.ValidateCandidate{
			{Filename: "ok.png", ContentType: "image/png", Size: 1024},
			{Filename: "bad.exe", ContentType: "application/x-msdownload", Size: 1024},
			{Filename: "../weird.gif", ContentType: "image/gif", Size: 1024},
		}})
		if err != nil {
			t.Fatalf("合法批次不应失败: %v", err)
		}
		if len(resp.Results) != 3 {
			t.Fatalf("应返回3条结论，实际 %d", len(resp.Results))
		}
		if resp.Results[0].Verdict != VerdictAccept {
			t.Errorf("第1条应为 ACCEPT，实际 %s", resp.Results[0].Verdict)
		}
		if resp.Results[1].Verdict != VerdictReject {
			t.Errorf("第2条应为 REJECT，实际 %s", resp.Results[1].Verdict)
		}
		if resp.Results[2].Verdict != VerdictAcceptWithWarnings {
			t.Errorf("第3条应为 ACCEPT_WITH_WARNINGS，实际 %s", resp.Results[2].Verdict)
		}
		if resp.Results[2].SanitizedName != "weird.gif" {
			t.Errorf("第3条清洗后文件名应为 weird.gif，实际 %s", resp.Results[2].SanitizedName)
		}
	})
}

// 性能测试
func BenchmarkCheckMeta(b *testing.B) {
	svc := newTestService()
	for i := 0; i < b.N; i++ {
		svc.CheckMeta("三月刊封面图-final(2).psd", "image/vnd.adobe.photoshop", 4*1024*1024)
	}
}
