package comparator

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/document"
	"github.com/spigell/jd-comparator/internal/utils"
)

const (
	acceptType = "application/json"
	// maxLoggedBody bounds response bodies written to debug logs.
	maxLoggedBody = 500
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildMultipart attaches exactly one of jd_file/jd_text and always resume_file.
func buildMultipart(p *Payload) (io.Reader, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	switch {
	case p.JDFile != nil:
		if err := writeFilePart(w, FieldJDFile, p.JDFile); err != nil {
			return nil, "", err
		}
	case p.JDText != "":
		if err := w.WriteField(FieldJDText, p.JDText); err != nil {
			return nil, "", err
		}
	}

	if err := writeFilePart(w, FieldResumeFile, p.ResumeFile); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &b, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f *document.File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))

	contentType := f.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", field, err)
	}

	if _, err := io.Copy(part, f.Reader()); err != nil {
		return fmt.Errorf("writing %s part: %w", field, err)
	}

	return nil
}

func (c *Client) request(logger *zap.Logger, req *http.Request) (*http.Response, error) {
	logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, requestID string) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", acceptType)
	req.Header.Set("X-Request-ID", requestID)

	return req
}

func (c *Client) parseCompareResponse(logger *zap.Logger, resp *http.Response) (*Result, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rewriteTransportError(err)
	}

	logger.Debug("got response from comparison api",
		zap.Int("status", resp.StatusCode),
		zap.String("body", utils.TruncateForLog(string(data), maxLoggedBody)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, resp.Status, data)
	}

	return decodeResult(data)
}
