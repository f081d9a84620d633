/*
 * @Description: 内容首部字节的格式识别
 * @Author: 安知鱼
 * @Date: 2026-08-23 13:52:46
 * @LastEditTime: 2026-08-23 13:52:46
 * @LastEditors: 安知鱼
 */
package validator

import (
	"bytes"
	"strings"
)

// executableSignatures 覆盖主流平台的可执行格式首部。
var executableSignatures = []struct {
	prefix []byte
	name   string
}{
	{[]byte{0x4D, 0x5A}, "Windows PE"},
	{[]byte{0x7F, 0x45, 0x4C, 0x46}, "ELF"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCE}, "Mach-O"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCF}, "Mach-O"},
	{[]byte{0xCE, 0xFA, 0xED, 0xFE}, "Mach-O"},
	{[]byte{0xCF, 0xFA, 0xED, 0xFE}, "Mach-O"},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, "Mach-O Universal"},
	{[]byte{0x23, 0x21}, "脚本(shebang)"},
}

// detectExecutable 判断首部字节是否为可执行格式，是则返回格式名。
func detectExecutable(head []byte) (string, bool) {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(head, sig.prefix) {
			return sig.name, true
		}
	}
	return "", false
}

// detectFamily 根据首部字节识别常见内容格式，返回其规范媒体类型。
// 无法识别时返回空字符串，调用方不应在此基础上做否定推断。
func detectFamily(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(head, []byte("GIF8")):
		return "image/gif"
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return "image/webp"
	case bytes.HasPrefix(head, []byte("%PDF")):
		return "application/pdf"
	case bytes.HasPrefix(head, []byte("PK\x03\x04")),
		bytes.HasPrefix(head, []byte("PK\x05\x06")),
		bytes.HasPrefix(head, []byte("PK\x07\x08")):
		return "application/zip"
	case len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")):
		return "video/mp4"
	case bytes.HasPrefix(head, []byte("II*\x00")), bytes.HasPrefix(head, []byte("MM\x00*")):
		return "image/tiff"
	case bytes.HasPrefix(head, []byte("8BPS")):
		return "image/vnd.adobe.photoshop"
	case bytes.HasPrefix(head, []byte("%!PS")):
		return "application/postscript"
	}
	return ""
}

// familyCompatible 判断声明类型与识别出的规范类型是否可以视为一致。
// 识别是宽松的：同类容器与衍生格式都算一致，只有明确矛盾才返回 false。
func familyCompatible(declared, detected string) bool {
	if declared == detected {
		return true
	}
	switch detected {
	case "application/zip":
		// OOXML、JAR 等均为 ZIP 容器
		return strings.Contains(declared, "zip") ||
			strings.Contains(declared, "officedocument") ||
			declared == "application/java-archive"
	case "video/mp4":
		// ftyp 盒子同时覆盖 mp4/mov 家族
		return strings.HasPrefix(declared, "video/")
	case "application/pdf":
		// AI 文件多为 PDF 兼容结构
		return declared == "application/postscript" || declared == "application/illustrator"
	case "application/postscript":
		return strings.HasPrefix(declared, "application/")
	case "image/tiff", "image/vnd.adobe.photoshop":
		return strings.HasPrefix(declared, "image/")
	}
	return false
}
