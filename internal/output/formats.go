package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/hessian"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRequest(desc *spidex.Descriptor) string
	FormatResponse(resp *spidex.Response) string
	FormatError(err error) string
}

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      any               `json:"body,omitempty" yaml:"body,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// TimingData represents detailed timing information for an HTTP request
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs,omitempty" yaml:"dnsLookupMs,omitempty"`
	TCPConnection   int64 `json:"tcpConnectionMs,omitempty" yaml:"tcpConnectionMs,omitempty"`
	TLSHandshake    int64 `json:"tlsHandshakeMs,omitempty" yaml:"tlsHandshakeMs,omitempty"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs,omitempty" yaml:"timeToFirstByteMs,omitempty"`
	ContentTransfer int64 `json:"contentTransferMs,omitempty" yaml:"contentTransferMs,omitempty"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of an HTTP response
type ResponseData struct {
	StatusCode    int               `json:"statusCode" yaml:"statusCode"`
	Status        string            `json:"status" yaml:"status"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body          any               `json:"body,omitempty" yaml:"body,omitempty"`
	Charset       string            `json:"charset" yaml:"charset"`
	ContentLength int               `json:"contentLength" yaml:"contentLength"`
	Timing        TimingData        `json:"timing" yaml:"timing"`
	Timestamp     string            `json:"timestamp" yaml:"timestamp"`
}

// ErrorData represents a request that ended without a response.
type ErrorData struct {
	Error     string `json:"error" yaml:"error"`
	Kind      string `json:"kind" yaml:"kind"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// NewRequestData flattens a descriptor for structured output.
func NewRequestData(desc *spidex.Descriptor) RequestData {
	return RequestData{
		Method:    desc.Method,
		URL:       desc.URL(),
		Headers:   desc.Header.Clone(),
		Body:      bodyValue(desc.Body, desc.BodyEncoding == spidex.EncodingBinary),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewResponseData flattens a response for structured output.
func NewResponseData(resp *spidex.Response) ResponseData {
	return ResponseData{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Headers:       flattenHeader(resp.Header),
		Body:          bodyValue(resp.Content, resp.Charset == spidex.CharsetBinary),
		Charset:       resp.Charset,
		ContentLength: len(resp.Content),
		Timing:        NewTimingData(resp.Timing),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
}

// NewTimingData converts timings to milliseconds.
func NewTimingData(timing spidex.TimingInfo) TimingData {
	return TimingData{
		DNSLookup:       timing.DNSLookupTime.Milliseconds(),
		TCPConnection:   timing.TCPConnectTime.Milliseconds(),
		TLSHandshake:    timing.TLSHandshakeTime.Milliseconds(),
		TimeToFirstByte: timing.TimeToFirstByte.Milliseconds(),
		ContentTransfer: timing.ContentTransferTime.Milliseconds(),
		Total:           timing.TotalTime.Milliseconds(),
	}
}

// NewErrorData describes err for structured output.
func NewErrorData(err error) ErrorData {
	return ErrorData{
		Error:     err.Error(),
		Kind:      ErrorKind(err),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ErrorKind classifies err into a short machine-readable label.
func ErrorKind(err error) string {
	var timeoutErr *spidex.TimeoutError

	switch {
	case errors.As(err, &timeoutErr):
		return strings.ReplaceAll(timeoutErr.Phase.String(), " ", "_")
	case errors.Is(err, spidex.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, spidex.ErrUnsupportedProtocol):
		return "unsupported_protocol"
	case errors.Is(err, spidex.ErrUnsupportedCharset), errors.Is(err, spidex.ErrUnsupportedData):
		return "invalid_options"
	case errors.Is(err, hessian.ErrStatus):
		return "rpc_status"
	case errors.Is(err, hessian.ErrFault):
		return "rpc_fault"
	case errors.Is(err, hessian.ErrDecode):
		return "rpc_decode"
	default:
		return "transport"
	}
}

// bodyValue returns parsed JSON when content is JSON, the text otherwise and
// nothing for binary content.
func bodyValue(content []byte, binary bool) any {
	if len(content) == 0 || binary {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(content, &parsed); err == nil {
		return parsed
	}

	return string(content)
}

func flattenHeader(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}

	flat := make(map[string]string, len(header))
	for key, values := range header {
		flat[key] = strings.Join(values, ", ")
	}

	return flat
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Verbose bool
	Pretty  bool
}

func (f *JSONFormatter) marshal(v any) string {
	var (
		output []byte
		err    error
	)

	if f.Pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal output: %s"}`, err)
	}

	return string(output) + "\n"
}

// FormatRequest formats a request as JSON. Requests are only shown when verbose.
func (f *JSONFormatter) FormatRequest(desc *spidex.Descriptor) string {
	if !f.Verbose {
		return ""
	}

	return f.marshal(NewRequestData(desc))
}

// FormatResponse formats a response as JSON
func (f *JSONFormatter) FormatResponse(resp *spidex.Response) string {
	return f.marshal(NewResponseData(resp))
}

// FormatError formats an error as JSON
func (f *JSONFormatter) FormatError(err error) string {
	return f.marshal(NewErrorData(err))
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	Verbose bool
}

func (f *YAMLFormatter) marshal(v any) string {
	output, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: failed to marshal output: %s\n", err)
	}

	return "---\n" + string(output)
}

// FormatRequest formats a request as YAML. Requests are only shown when verbose.
func (f *YAMLFormatter) FormatRequest(desc *spidex.Descriptor) string {
	if !f.Verbose {
		return ""
	}

	return f.marshal(NewRequestData(desc))
}

// FormatResponse formats a response as YAML
func (f *YAMLFormatter) FormatResponse(resp *spidex.Response) string {
	return f.marshal(NewResponseData(resp))
}

// FormatError formats an error as YAML
func (f *YAMLFormatter) FormatError(err error) string {
	return f.marshal(NewErrorData(err))
}

// GetFormatter returns the appropriate formatter for the given format
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch OutputFormat(strings.ToLower(string(format))) {
	case FormatJSON:
		return &JSONFormatter{Verbose: verbose, Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{Verbose: verbose}
	default:
		return NewFormatter(verbose, noColor)
	}
}
