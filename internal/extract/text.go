package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	unicodeX "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	trailingSpace = regexp2.MustCompile(`[ \t]+\n`, regexp2.None)
	blankLines    = regexp2.MustCompile(`\n{3,}`, regexp2.None)
)

// candidateEncodings 非 UTF-8 文本依次尝试的编码
var candidateEncodings = []encoding.Encoding{
	simplifiedchinese.GB18030,
	traditionalchinese.Big5,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
	charmap.Windows1252,
}

// decodeText 检测编码并转换为 UTF-8
func decodeText(data []byte) string {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	// 检查 UTF-16 BOM
	if len(data) >= 2 {
		var dec *encoding.Decoder
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			dec = unicodeX.UTF16(unicodeX.LittleEndian, unicodeX.IgnoreBOM).NewDecoder()
		case data[0] == 0xFE && data[1] == 0xFF:
			dec = unicodeX.UTF16(unicodeX.BigEndian, unicodeX.IgnoreBOM).NewDecoder()
		}
		if dec != nil {
			res, err := io.ReadAll(transform.NewReader(bytes.NewReader(data[2:]), dec))
			if err == nil && utf8.Valid(res) {
				return string(res)
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	for _, enc := range candidateEncodings {
		res, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
		if err == nil && utf8.Valid(res) && !bytes.ContainsRune(res, utf8.RuneError) &&
			len(strings.TrimSpace(string(res))) > 0 {
			return string(res)
		}
	}

	return cleanInvalidChars(string(data))
}

// cleanInvalidChars 去除无法识别的字符
func cleanInvalidChars(text string) string {
	var out strings.Builder
	for _, r := range text {
		if r == utf8.RuneError {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			out.WriteRune(r)
		} else if unicode.IsSpace(r) {
			out.WriteRune(' ')
		}
	}
	return out.String()
}

// normalizeText 统一换行并压缩多余空行
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	if out, err := trailingSpace.Replace(text, "\n", -1, -1); err == nil {
		text = out
	}
	if out, err := blankLines.Replace(text, "\n\n", -1, -1); err == nil {
		text = out
	}
	return strings.TrimSpace(text)
}
