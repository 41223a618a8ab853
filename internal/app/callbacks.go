package app

import (
	"strconv"
	"strings"
)

// Действия inline-кнопок: "<action>:<id>".
const (
	actClaim   = "claim"
	actAbandon = "abandon"
	actSubmit  = "submit"
	actDelete  = "delete"
	actRate    = "rate"
	actFile    = "file"
	actOpen    = "open" // id предмета, 0: все предметы
)

func cbData(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}

func parseCallback(data string) (action string, id int64, ok bool) {
	action, raw, found := strings.Cut(data, ":")
	if !found || action == "" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return "", 0, false
	}
	return action, id, true
}
