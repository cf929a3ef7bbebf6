package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

func TestNormalizeCharset(t *testing.T) {
	assert.Equal(t, CharsetUTF8, NormalizeCharset(""))
	assert.Equal(t, CharsetUTF8, NormalizeCharset("UTF-8"))
	assert.Equal(t, CharsetBinary, NormalizeCharset(" Binary "))
	assert.Equal(t, "gb2312", NormalizeCharset("GB2312"))
}

func TestDecode(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("民间故事")
	require.NoError(t, err)

	big5, err := traditionalchinese.Big5.NewEncoder().String("文化資產")
	require.NoError(t, err)

	tests := []struct {
		name     string
		content  []byte
		charset  string
		expected string
	}{
		{name: "gb2312 label", content: []byte(gbk), charset: "gb2312", expected: "民间故事"},
		{name: "gbk label", content: []byte(gbk), charset: "GBK", expected: "民间故事"},
		{name: "big5", content: []byte(big5), charset: "big5", expected: "文化資產"},
		{name: "utf8 is returned as received", content: []byte("你好"), charset: "utf8", expected: "你好"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(tt.content, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(decoded))
		})
	}
}

func TestDecode_BinaryPassthrough(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0xff, 0x00, 0xfe}

	decoded, err := Decode(raw, CharsetBinary)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestLookupCharset_Unknown(t *testing.T) {
	_, err := LookupCharset("klingon-8")
	require.ErrorIs(t, err, ErrUnsupportedCharset)

	_, err = Decode([]byte("x"), "klingon-8")
	require.ErrorIs(t, err, ErrUnsupportedCharset)
}

func TestLookupCharset_CompactSpellings(t *testing.T) {
	tests := []struct {
		charset string
		text    string
		want    []byte
	}{
		{charset: "shiftjis", text: "あ", want: []byte{0x82, 0xa0}},
		{charset: "Shift-JIS", text: "あ", want: []byte{0x82, 0xa0}},
		{charset: "euckr", text: "한", want: []byte{0xc7, 0xd1}},
		{charset: "win1252", text: "€", want: []byte{0x80}},
		{charset: "windows1252", text: "€", want: []byte{0x80}},
		{charset: "iso88591", text: "é", want: []byte{0xe9}},
		{charset: "koi8r", text: "Ж", want: []byte{0xf6}},
		{charset: "ucs2", text: "hi", want: []byte{'h', 0, 'i', 0}},
		{charset: "utf16le", text: "hi", want: []byte{'h', 0, 'i', 0}},
		{charset: "UTF-16LE", text: "hi", want: []byte{'h', 0, 'i', 0}},
		{charset: "utf16be", text: "hi", want: []byte{0, 'h', 0, 'i'}},
		{charset: "utf16", text: "hi", want: []byte{0xff, 0xfe, 'h', 0, 'i', 0}},
	}

	for _, tt := range tests {
		t.Run(tt.charset, func(t *testing.T) {
			enc, err := LookupCharset(tt.charset)
			require.NoError(t, err)
			require.NotNil(t, enc)

			encoded, err := Encode(tt.text, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, encoded)

			decoded, err := Decode(encoded, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(decoded))
		})
	}
}

func TestEncode(t *testing.T) {
	encoded, err := Encode("你好", "gbk")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc4, 0xe3, 0xba, 0xc3}, encoded)

	encoded, err = Encode("你好", "utf8")
	require.NoError(t, err)
	assert.Equal(t, []byte("你好"), encoded)
}
