package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

// ExtractJSONObject 從模型輸出中取出 JSON 物件
// 先嘗試整段解析，失敗時改取第一個 '{' 到最後一個 '}' 之間的內容
func ExtractJSONObject(text string, v interface{}) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return fmt.Errorf("empty content")
	}
	if err := ParseJSON(content, v); err == nil {
		return nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found")
	}
	return ParseJSON(content[start:end+1], v)
}
