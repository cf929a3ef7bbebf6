package http

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	// CharsetUTF8 is the default charset; content is returned as received.
	CharsetUTF8 = "utf8"
	// CharsetBinary disables decoding; content is returned as raw bytes.
	CharsetBinary = "binary"

	charsetCacheSize = 64
)

var charsetCache = mustCharsetCache()

// unicodeCharsets covers the UTF-16 spellings, keyed by their compact form.
// utf16 honors a byte order mark and writes one; the others never do.
var unicodeCharsets = map[string]encoding.Encoding{
	"ucs2":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

var separators = strings.NewReplacer("-", "", "_", "")

func mustCharsetCache() *lru.Cache[string, encoding.Encoding] {
	cache, err := lru.New[string, encoding.Encoding](charsetCacheSize)
	if err != nil {
		panic(err)
	}

	return cache
}

// NormalizeCharset lower-cases a charset identifier and maps the empty string
// and the usual UTF-8 spellings to CharsetUTF8.
func NormalizeCharset(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf8", "utf-8":
		return CharsetUTF8
	default:
		return name
	}
}

// IsPassthrough reports whether content in this charset is returned without decoding.
func IsPassthrough(charset string) bool {
	charset = NormalizeCharset(charset)
	return charset == CharsetUTF8 || charset == CharsetBinary
}

// LookupCharset resolves a charset identifier to its encoding. WHATWG labels are
// tried first, then IANA names. Compact spellings such as shiftjis, euckr,
// win1252 and utf16le resolve too. CharsetUTF8 and CharsetBinary resolve to nil.
func LookupCharset(name string) (encoding.Encoding, error) {
	name = NormalizeCharset(name)
	if IsPassthrough(name) {
		return nil, nil
	}

	if enc, ok := charsetCache.Get(name); ok {
		return enc, nil
	}

	enc := resolveCharset(name)
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCharset, name)
	}

	charsetCache.Add(name, enc)

	return enc, nil
}

func resolveCharset(name string) encoding.Encoding {
	compact := separators.Replace(name)
	if enc, ok := unicodeCharsets[compact]; ok {
		return enc
	}

	for _, candidate := range charsetCandidates(name, compact) {
		if enc, err := htmlindex.Get(candidate); err == nil {
			return enc
		}

		if enc, err := ianaindex.IANA.Encoding(candidate); err == nil && enc != nil {
			return enc
		}
	}

	return nil
}

// charsetCandidates lists the spellings tried for name: as given, win125x as
// windows-125x, without separators, then with one "-" or "_" inserted.
func charsetCandidates(name, compact string) []string {
	candidates := []string{name}

	if strings.HasPrefix(compact, "win") && !strings.HasPrefix(compact, "windows") {
		candidates = append(candidates, "windows-"+compact[len("win"):])
	}

	if compact != name {
		candidates = append(candidates, compact)
	}

	for i := 1; i < len(compact); i++ {
		for _, sep := range []string{"-", "_"} {
			candidates = append(candidates, compact[:i]+sep+compact[i:])
		}
	}

	return candidates
}

// Decode converts content from charset into UTF-8.
func Decode(content []byte, charset string) ([]byte, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		return content, nil
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", NormalizeCharset(charset), err)
	}

	return decoded, nil
}

// Encode converts UTF-8 text into charset. Characters the charset cannot
// represent are replaced by its substitution byte.
func Encode(text, charset string) ([]byte, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		return []byte(text), nil
	}

	encoded, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s content: %w", NormalizeCharset(charset), err)
	}

	return encoded, nil
}
