package generator

import (
	"encoding/base64"
	"fmt"
)

// aspectRatio は幅と高さから "W:H" 形式の比率を求めます。どちらかが0以下なら空文字です。
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	g := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/g, height/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// seedToPtrInt32 は設定上の *int64 を SDK 用の *int32 に変換します。
func seedToPtrInt32(s *int64) *int32 {
	if s == nil {
		return nil
	}
	v := int32(*s)
	return &v
}

// dereferenceSeed は nil の場合 0 を返します。
func dereferenceSeed(s *int64) int64 {
	if s == nil {
		return 0
	}
	return *s
}

// toDataURL は画像バイト列を data URL に変換します。
func toDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
