package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	spidex "github.com/wesleyorama2/spidex/http"
)

// Formatter is responsible for formatting requests and responses in text format
type Formatter struct {
	Verbose bool
	NoColor bool
	colors  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}

	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		colors:  colors,
	}
}

// FormatRequest formats a request descriptor for display. Headers and body are
// only shown when verbose.
func (f *Formatter) FormatRequest(desc *spidex.Descriptor) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "▶ REQUEST: %s %s\n", f.colors.Method.Sprint(desc.Method), f.colors.URL.Sprint(desc.URL()))

	if !f.Verbose {
		return buf.String()
	}

	buf.WriteString("  Headers:\n")
	for _, key := range sortedKeys(desc.Header) {
		fmt.Fprintf(&buf, "    %s: %s\n", f.colors.HeaderKey.Sprint(key), f.colors.HeaderValue.Sprint(desc.Header[key]))
	}

	if len(desc.Body) > 0 {
		buf.WriteString("  Body: ")
		buf.WriteString(formatBody(desc.Body, desc.BodyEncoding == spidex.EncodingBinary))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResponse formats a response for display
func (f *Formatter) FormatResponse(resp *spidex.Response) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms, %s)\n",
		f.colors.StatusColor(resp.StatusCode).Sprint(resp.Status),
		resp.Timing.TotalTime.Milliseconds(),
		humanize.Bytes(uint64(len(resp.Content))))

	if f.Verbose {
		timing := NewTimingData(resp.Timing)

		buf.WriteString("  Timing:\n")
		fmt.Fprintf(&buf, "    DNS Lookup:         %dms\n", timing.DNSLookup)
		fmt.Fprintf(&buf, "    TCP Connection:     %dms\n", timing.TCPConnection)
		fmt.Fprintf(&buf, "    TLS Handshake:      %dms\n", timing.TLSHandshake)
		fmt.Fprintf(&buf, "    Time to First Byte: %dms\n", timing.TimeToFirstByte)
		fmt.Fprintf(&buf, "    Content Transfer:   %dms\n", timing.ContentTransfer)
		fmt.Fprintf(&buf, "    Total:              %dms\n", timing.Total)

		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(resp.Header) {
			for _, value := range resp.Header[key] {
				fmt.Fprintf(&buf, "    %s: %s\n", f.colors.HeaderKey.Sprint(key), f.colors.HeaderValue.Sprint(value))
			}
		}
	}

	if len(resp.Content) > 0 {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatBody(resp.Content, resp.Charset == spidex.CharsetBinary))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatError formats a failed request for display
func (f *Formatter) FormatError(err error) string {
	return fmt.Sprintf("%s %s [%s]\n", ErrorIcon(f.NoColor), f.colors.Error.Sprint(err.Error()), ErrorKind(err))
}

// formatBody pretty-prints JSON and summarises binary content.
func formatBody(content []byte, binary bool) string {
	if binary {
		return fmt.Sprintf("<binary, %s>", humanize.Bytes(uint64(len(content))))
	}

	return formatJSONString(string(content))
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
