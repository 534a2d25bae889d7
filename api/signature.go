package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"
)

const (
	HeaderClientID         = "Client-Id"
	HeaderRequestID        = "Request-Id"
	HeaderRequestTimestamp = "Request-Timestamp"
	HeaderDigest           = "Digest"
	HeaderSignature        = "Signature"

	timestampLayout = "2006-01-02T15:04:05Z"
	signaturePrefix = "HMACSHA256="
)

// Signer produces and checks the digest headers used by the checkout gateway
// for outgoing calls and for its payment notifications.
type Signer struct {
	ClientID  string
	SecretKey string
}

func (s Signer) Digest(body []byte) string {
	hash := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(hash[:])
}

func (s Signer) Signature(requestID, timestamp, target, digest string) string {
	componentSignature := "Client-Id:" + s.ClientID + "\n" +
		"Request-Id:" + requestID + "\n" +
		"Request-Timestamp:" + timestamp + "\n" +
		"Request-Target:" + target + "\n" +
		"Digest:" + digest

	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(componentSignature))

	return signaturePrefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s Signer) Sign(header http.Header, requestID string, at time.Time, target string, body []byte) {
	timestamp := at.UTC().Format(timestampLayout)
	digest := s.Digest(body)

	header.Set(HeaderClientID, s.ClientID)
	header.Set(HeaderRequestID, requestID)
	header.Set(HeaderRequestTimestamp, timestamp)
	header.Set(HeaderDigest, digest)
	header.Set(HeaderSignature, s.Signature(requestID, timestamp, target, digest))
}

// Verify checks a signed request. The digest is recomputed from the body.
func (s Signer) Verify(header http.Header, target string, body []byte) bool {
	if header.Get(HeaderClientID) != s.ClientID {
		return false
	}

	expected := s.Signature(
		header.Get(HeaderRequestID),
		header.Get(HeaderRequestTimestamp),
		target,
		s.Digest(body),
	)

	return hmac.Equal([]byte(expected), []byte(header.Get(HeaderSignature)))
}
