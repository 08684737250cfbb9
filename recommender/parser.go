package recommender

import (
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/text/encoding/charmap"
)

const defaultDomainMessage = "error processing recommendation"

// NormalizeEncoding 输出不是合法 UTF-8 时按 Windows-1252 解码
func NormalizeEncoding(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(decoded)
}

// ExtractJSON 截取第一个 { 到最后一个 } 之间的内容；找不到时返回去除空白的全文
func ExtractJSON(text string) string {
	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return text[startIdx : endIdx+1]
	}
	return strings.TrimSpace(text)
}

// ParseOutput 从混有日志和警告的进程输出中提取 JSON 对象
func ParseOutput(raw []byte) (json.RawMessage, error) {
	candidate := ExtractJSON(NormalizeEncoding(raw))
	if !strings.HasPrefix(candidate, "{") || !json.Valid([]byte(candidate)) {
		return nil, ErrUnparseableOutput
	}
	return json.RawMessage(candidate), nil
}

// decodeDomainError 对象中存在非 null 的 error 字段时返回业务错误
func decodeDomainError(raw json.RawMessage) *DomainError {
	var probe struct {
		Error         json.RawMessage `json:"error"`
		AvailableTags json.RawMessage `json:"available_tags"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	if len(probe.Error) == 0 || string(probe.Error) == "null" {
		return nil
	}

	derr := &DomainError{Message: defaultDomainMessage, AvailableTags: []string{}}
	var msg string
	if err := json.Unmarshal(probe.Error, &msg); err == nil && msg != "" {
		derr.Message = msg
	}
	if len(probe.AvailableTags) > 0 {
		var tags []string
		if err := json.Unmarshal(probe.AvailableTags, &tags); err == nil && tags != nil {
			derr.AvailableTags = tags
		}
	}
	return derr
}
