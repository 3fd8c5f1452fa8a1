package torrent

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeebo/bencode"
)

// Payload is what gets handed to the backend: either raw .torrent metainfo or
// a magnet URI.
type Payload struct {
	Data   []byte
	Magnet string
}

// MagnetPayload wraps a magnet URI.
func MagnetPayload(uri string) Payload {
	return Payload{Magnet: strings.TrimSpace(uri)}
}

// FilePayload wraps .torrent metainfo bytes.
func FilePayload(data []byte) Payload {
	return Payload{Data: data}
}

// IsMagnet reports whether the payload is a magnet URI.
func (p Payload) IsMagnet() bool {
	return p.Magnet != ""
}

// Validate checks that the payload is something the backend can accept.
func (p Payload) Validate() error {
	switch {
	case p.IsMagnet():
		if !strings.HasPrefix(strings.ToLower(p.Magnet), "magnet:?") {
			return fmt.Errorf("%w: not a magnet uri", ErrUnsupportedPayload)
		}
		return nil
	case len(p.Data) == 0:
		return fmt.Errorf("%w: empty payload", ErrUnsupportedPayload)
	case p.Data[0] != 'd':
		// Sites answer with an HTML page when a download link expires.
		return fmt.Errorf("%w: not bencoded metainfo", ErrUnsupportedPayload)
	}
	return nil
}

// metainfo captures the raw info dictionary so it can be hashed verbatim.
type metainfo struct {
	Info bencode.RawMessage `bencode:"info"`
}

// InfoHash returns the lower-case hex v1 info-hash of the payload.
func (p Payload) InfoHash() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if p.IsMagnet() {
		return magnetInfoHash(p.Magnet)
	}

	var mi metainfo
	if err := bencode.DecodeBytes(p.Data, &mi); err != nil {
		return "", fmt.Errorf("%w: decode metainfo: %v", ErrUnsupportedPayload, err)
	}
	if len(mi.Info) == 0 {
		return "", fmt.Errorf("%w: metainfo has no info dictionary", ErrUnsupportedPayload)
	}
	sum := sha1.Sum(mi.Info)
	return hex.EncodeToString(sum[:]), nil
}

// magnetInfoHash extracts the btih hash from a magnet URI. Both the hex and
// the base32 encodings are accepted.
func magnetInfoHash(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: parse magnet: %v", ErrUnsupportedPayload, err)
	}
	for _, xt := range u.Query()["xt"] {
		const prefix = "urn:btih:"
		if !strings.HasPrefix(strings.ToLower(xt), prefix) {
			continue
		}
		h := xt[len(prefix):]
		switch len(h) {
		case 40:
			if _, err := hex.DecodeString(h); err != nil {
				return "", fmt.Errorf("%w: bad hex btih", ErrUnsupportedPayload)
			}
			return strings.ToLower(h), nil
		case 32:
			raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(h))
			if err != nil {
				return "", fmt.Errorf("%w: bad base32 btih", ErrUnsupportedPayload)
			}
			return hex.EncodeToString(raw), nil
		}
	}
	return "", fmt.Errorf("%w: magnet has no btih", ErrUnsupportedPayload)
}
