package middleware

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/pkg/ctxval"
)

const maxLoggedBody = 4 << 10

type (
	LogRequestConfig struct {
		Logger       Logger
		Enabled      func(c echo.Context) bool
		RequestBody  func(c echo.Context) bool
		ResponseBody func(c echo.Context) bool
		KeyAndValues func(c echo.Context) []any
	}
	bodyDumpWriter struct {
		io.Writer
		http.ResponseWriter
	}
)

// LogRequest writes one line per request. Bodies are logged only for JSON
// and only when the matching config func allows it.
func LogRequest(config LogRequestConfig) echo.MiddlewareFunc {
	yes := func(c echo.Context) bool { return true }
	no := func(c echo.Context) bool { return false }
	if config.Logger == nil {
		panic("Logger is required to use LogRequest")
	}
	if config.Enabled == nil {
		config.Enabled = yes
	}
	if config.RequestBody == nil {
		config.RequestBody = no
	}
	if config.ResponseBody == nil {
		config.ResponseBody = no
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !config.Enabled(c) {
				return next(c)
			}

			start := time.Now()
			req := c.Request()
			req = req.WithContext(ctxval.Wrap(req.Context()))
			c.SetRequest(req)
			res := c.Response()

			logReqBody := config.RequestBody(c) && isJSON(req.Header.Get(echo.HeaderContentType))
			logResBody := config.ResponseBody(c)

			var reqBody json.RawMessage
			if logReqBody {
				data, _ := io.ReadAll(req.Body)
				req.Body = io.NopCloser(bytes.NewReader(data))
				if len(data) > 0 && len(data) <= maxLoggedBody && json.Valid(data) {
					reqBody = data
				}
			}
			var resBuf bytes.Buffer
			if logResBody {
				res.Writer = &bodyDumpWriter{Writer: io.MultiWriter(res.Writer, &resBuf), ResponseWriter: res.Writer}
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			args := make([]any, 0, 24)
			args = append(args,
				"status", res.Status,
				"method", req.Method,
				"uri", req.RequestURI,
				"latency_ms", time.Since(start).Milliseconds(),
				"real_ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"request_id", GetRequestID(c),
			)
			if user, ok := ctxval.Get(req.Context(), UserKey); ok && user != "" {
				args = append(args, "user", user)
			}
			if config.KeyAndValues != nil {
				args = append(args, config.KeyAndValues(c)...)
			}
			if reqBody != nil {
				args = append(args, "request_body", reqBody)
			}
			if logResBody && isJSON(res.Header().Get(echo.HeaderContentType)) && resBuf.Len() <= maxLoggedBody {
				args = append(args, "response_body", json.RawMessage(resBuf.Bytes()))
			}

			switch {
			case res.Status >= 500:
				if err != nil {
					args = append(args, "error", err.Error())
				}
				config.Logger.Errorw("request", args...)
			case res.Status >= 400:
				if err != nil {
					args = append(args, "error", err.Error())
				}
				config.Logger.Warnw("request", args...)
			default:
				config.Logger.Infow("request", args...)
			}
			return err
		}
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, echo.MIMEApplicationJSON)
}

func (w *bodyDumpWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyDumpWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func (w *bodyDumpWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *bodyDumpWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}
