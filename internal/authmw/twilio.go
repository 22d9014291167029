package authmw

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the provider signs webhooks with HMAC-SHA1
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "X-Twilio-Signature"

// TwilioSignature returns middleware that rejects form webhooks whose
// signature does not match authToken. The signed URL is publicBaseURL joined
// with the request URI; when publicBaseURL is empty it is derived from the
// request's Host and TLS state, which is wrong behind a rewriting proxy.
func TwilioSignature(authToken, publicBaseURL string) func(http.Handler) http.Handler {
	key := []byte(authToken)
	base := strings.TrimRight(publicBaseURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SignatureHeader)
			if got == "" {
				http.Error(w, "missing signature", http.StatusForbidden)
				return
			}
			if err := r.ParseForm(); err != nil {
				http.Error(w, "malformed form body", http.StatusBadRequest)
				return
			}

			want := Sign(key, requestURL(r, base), r.PostForm)
			if !hmac.Equal([]byte(got), []byte(want)) {
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sign computes the webhook signature: base64(HMAC-SHA1(key, url + k1 + v1 +
// k2 + v2 ...)) over form parameters sorted by name. Repeated parameters
// contribute every value in order.
func Sign(key []byte, url string, params map[string][]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(url))
	for _, k := range names {
		for _, v := range params[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func requestURL(r *http.Request, base string) string {
	if base != "" {
		return base + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
