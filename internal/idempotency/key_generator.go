package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies a Telegram update. The update id is unique per bot; a zero id,
// as in synthetic updates, falls back to the callback or message coordinates.
func UpdateKey(updateID int, callbackID string, chatID int64, messageID int) string {
	switch {
	case updateID != 0:
		return "upd:" + strconv.Itoa(updateID)
	case callbackID != "":
		return "cb:" + callbackID
	case messageID != 0:
		return "msg:" + GenerateKey(chatID, messageID)
	default:
		return ""
	}
}
