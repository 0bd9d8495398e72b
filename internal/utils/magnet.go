package utils

import (
	"encoding/base32"
	"encoding/hex"
	"net/url"
	"strings"
)

const btihPrefix = "urn:btih:"

// InfoHash extracts the BitTorrent info hash from a magnet link as lowercase hex.
// ok is false when the link is not a well-formed magnet reference.
func InfoHash(fetchURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(fetchURL))
	if err != nil || !strings.EqualFold(u.Scheme, "magnet") {
		return "", false
	}

	for _, xt := range u.Query()["xt"] {
		if len(xt) <= len(btihPrefix) || !strings.EqualFold(xt[:len(btihPrefix)], btihPrefix) {
			continue
		}
		if hash, ok := decodeBTIH(xt[len(btihPrefix):]); ok {
			return hash, true
		}
	}
	return "", false
}

// IsMagnet reports whether fetchURL is a usable magnet link
func IsMagnet(fetchURL string) bool {
	_, ok := InfoHash(fetchURL)
	return ok
}

func decodeBTIH(value string) (string, bool) {
	switch len(value) {
	case 40:
		raw, err := hex.DecodeString(value)
		if err != nil {
			return "", false
		}
		return hex.EncodeToString(raw), true
	case 32:
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(value))
		if err != nil {
			return "", false
		}
		return hex.EncodeToString(raw), true
	}
	return "", false
}
