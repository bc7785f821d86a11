package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CallbackDataSeparator splits the unique from its payload and the payload fields from each other.
	CallbackDataSeparator = ":"
	// CallbackDataLimitBytes is the Telegram limit for callback_data.
	CallbackDataLimitBytes = 64

	// telebot prepends this to the data of buttons it renders with a unique.
	telebotUniquePrefix = "\f"
)

var errEmptyCallback = errors.New("callback data is empty")

// EncodeCallback renders "<unique>[:<data>]" and fails when Telegram would refuse it.
// Deal ids are uuids, so a unique plus two ids still fits.
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback %q: data exceeds %d byte limit: got %d", unique, CallbackDataLimitBytes, len(payload))
	}
	return payload, nil
}

// DecodeCallback splits raw callback data into the unique and the remaining payload.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	callbackData = strings.TrimPrefix(callbackData, telebotUniquePrefix)
	if callbackData == "" {
		return "", "", errEmptyCallback
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}

// Join builds a callback payload from several fields.
func Join(fields ...string) string {
	return strings.Join(fields, CallbackDataSeparator)
}

// Split is the inverse of Join.
func Split(data string) []string {
	if data == "" {
		return nil
	}
	return strings.Split(data, CallbackDataSeparator)
}
