// Package reqlog пишет журнал HTTP-запросов в формате chi middleware.Logger,
// скрывая значения секретных параметров строки запроса.
package reqlog

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/middleware"
)

// Redacted заменяет значение скрытого параметра.
const Redacted = "REDACTED"

// SecretParams - параметры, которые не попадают в журнал ни портала, ни sandbox.
var SecretParams = []string{"code", "state", "token"}

// Middleware журналирует запросы в out, заменяя значения params на Redacted.
func Middleware(out middleware.LoggerInterface, params ...string) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{
		next:   &middleware.DefaultLogFormatter{Logger: out, NoColor: true},
		params: params,
	})
}

// Stdout - Middleware с тем же выводом, что у middleware.Logger.
func Stdout() func(http.Handler) http.Handler {
	return Middleware(log.New(os.Stdout, "", log.LstdFlags), SecretParams...)
}

type formatter struct {
	next   middleware.LogFormatter
	params []string
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return f.next.NewLogEntry(Redact(r, f.params...))
}

// Redact возвращает копию запроса со скрытыми значениями params.
// Если скрывать нечего, возвращается сам r.
func Redact(r *http.Request, params ...string) *http.Request {
	q := r.URL.Query()
	changed := false
	for _, p := range params {
		if _, ok := q[p]; ok {
			q.Set(p, Redacted)
			changed = true
		}
	}
	if !changed {
		return r
	}
	u := *r.URL
	u.RawQuery = q.Encode()
	out := r.WithContext(r.Context())
	out.URL = &u
	out.RequestURI = u.RequestURI()
	return out
}
